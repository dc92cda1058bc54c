package etl

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shaiso/Crucible/internal/tabular"
)

func frameFromCSV(t *testing.T, csv string) *tabular.Frame {
	t.Helper()
	f, err := tabular.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

// RollingMean Tests

func TestRollingMean(t *testing.T) {
	f := frameFromCSV(t, "x\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n")

	result, err := RollingMean(f, map[string]any{"window_size": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	processed := result["processed_columns"].([]string)
	found := false
	for _, col := range processed {
		if col == "x_rolling_mean" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected x_rolling_mean in processed columns, got %v", processed)
	}

	sample := result["sample_data"].([]map[string]any)
	if len(sample) != 10 {
		t.Fatalf("expected 10 sample rows, got %d", len(sample))
	}

	// Первые window-1 значений не определены
	if sample[0]["x_rolling_mean"] != nil {
		t.Errorf("expected nil at index 0, got %v", sample[0]["x_rolling_mean"])
	}
	if sample[1]["x_rolling_mean"] != nil {
		t.Errorf("expected nil at index 1, got %v", sample[1]["x_rolling_mean"])
	}

	// (1+2+3)/3 = 2, (8+9+10)/3 = 9
	if got := sample[2]["x_rolling_mean"]; got != 2.0 {
		t.Errorf("expected 2 at index 2, got %v", got)
	}
	if got := sample[9]["x_rolling_mean"]; got != 9.0 {
		t.Errorf("expected 9 at index 9, got %v", got)
	}
}

func TestRollingMeanWithGaps(t *testing.T) {
	f := frameFromCSV(t, "x,tag\n1,a\n2,a\n,a\n4,a\n5,a\n6,a\n")

	result, err := RollingMean(f, map[string]any{
		"window_size": float64(2),
		"columns":     []any{"x"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sample := result["sample_data"].([]map[string]any)

	// Окно с пропуском даёт nil
	if sample[2]["x_rolling_mean"] != nil {
		t.Errorf("expected nil for window with gap, got %v", sample[2]["x_rolling_mean"])
	}
	if sample[3]["x_rolling_mean"] != nil {
		t.Errorf("expected nil for window with gap, got %v", sample[3]["x_rolling_mean"])
	}
	// (4+5)/2 = 4.5
	if got := sample[4]["x_rolling_mean"]; got != 4.5 {
		t.Errorf("expected 4.5, got %v", got)
	}
}

func TestRollingMeanNoNumericColumns(t *testing.T) {
	f := frameFromCSV(t, "name\nfoo\nbar\n")

	_, err := RollingMean(f, nil)
	if !errors.Is(err, ErrNoNumericColumns) {
		t.Errorf("expected ErrNoNumericColumns, got %v", err)
	}
}

// PeakDetection Tests

func TestPeakDetection(t *testing.T) {
	// Пики на индексах 1, 3, 5
	f := frameFromCSV(t, "y\n0\n5\n0\n3\n0\n7\n0\n")

	result, err := PeakDetection(f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peaks := result["peaks"].([]int)
	if len(peaks) != 3 {
		t.Fatalf("expected 3 peaks, got %v", peaks)
	}
	for i, want := range []int{1, 3, 5} {
		if peaks[i] != want {
			t.Errorf("expected peak at %d, got %d", want, peaks[i])
		}
	}
}

func TestPeakDetectionHeight(t *testing.T) {
	f := frameFromCSV(t, "y\n0\n5\n0\n3\n0\n7\n0\n")

	result, err := PeakDetection(f, map[string]any{"height": float64(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peaks := result["peaks"].([]int)
	if len(peaks) != 2 {
		t.Fatalf("expected 2 peaks, got %v", peaks)
	}
	if peaks[0] != 1 || peaks[1] != 5 {
		t.Errorf("expected peaks [1 5], got %v", peaks)
	}

	properties := result["properties"].(map[string]any)
	heights := properties["peak_heights"].([]float64)
	if heights[0] != 5 || heights[1] != 7 {
		t.Errorf("expected heights [5 7], got %v", heights)
	}
}

func TestPeakDetectionDistance(t *testing.T) {
	// Два близких пика: при distance=3 остаётся более высокий
	f := frameFromCSV(t, "y\n0\n5\n0\n7\n0\n")

	result, err := PeakDetection(f, map[string]any{"distance": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peaks := result["peaks"].([]int)
	if len(peaks) != 1 || peaks[0] != 3 {
		t.Errorf("expected [3], got %v", peaks)
	}
}

func TestPeakDetectionPlateau(t *testing.T) {
	// Плато: пиком считается середина
	f := frameFromCSV(t, "y\n0\n4\n4\n4\n0\n")

	result, err := PeakDetection(f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peaks := result["peaks"].([]int)
	if len(peaks) != 1 || peaks[0] != 2 {
		t.Errorf("expected [2], got %v", peaks)
	}
}

func TestPeakDetectionColumnNotFound(t *testing.T) {
	f := frameFromCSV(t, "y\n1\n2\n")

	_, err := PeakDetection(f, map[string]any{"column": "missing"})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}

// DataQuality Tests

func TestDataQuality(t *testing.T) {
	f := frameFromCSV(t, "v,label\n1,a\n2,b\n,a\n4,a\n")

	result, err := DataQuality(f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result["row_count"] != 4 {
		t.Errorf("expected 4 rows, got %v", result["row_count"])
	}
	if result["column_count"] != 2 {
		t.Errorf("expected 2 columns, got %v", result["column_count"])
	}

	columns := result["columns"].(map[string]any)
	v := columns["v"].(map[string]any)

	if v["dtype"] != "float64" {
		t.Errorf("expected float64, got %v", v["dtype"])
	}
	if v["missing_count"] != 1 {
		t.Errorf("expected 1 missing, got %v", v["missing_count"])
	}
	if v["missing_percentage"] != 25.0 {
		t.Errorf("expected 25, got %v", v["missing_percentage"])
	}
	if v["min"] != 1.0 || v["max"] != 4.0 {
		t.Errorf("expected min 1 max 4, got %v/%v", v["min"], v["max"])
	}
	// mean = (1+2+4)/3
	if mean := v["mean"].(float64); math.Abs(mean-7.0/3.0) > 1e-9 {
		t.Errorf("unexpected mean %v", mean)
	}
	if v["median"] != 2.0 {
		t.Errorf("expected median 2, got %v", v["median"])
	}

	label := columns["label"].(map[string]any)
	if label["dtype"] != "object" {
		t.Errorf("expected object, got %v", label["dtype"])
	}
	if label["unique_count"] != 2 {
		t.Errorf("expected 2 unique, got %v", label["unique_count"])
	}
	top := label["top_values"].(map[string]int)
	if top["a"] != 3 {
		t.Errorf("expected a:3, got %v", top)
	}

	// overall = (25 + 0) / 2 = 12.5; score = 87.5
	if result["overall_missing_percentage"] != 12.5 {
		t.Errorf("expected 12.5, got %v", result["overall_missing_percentage"])
	}
	if result["quality_score"] != 87.5 {
		t.Errorf("expected 87.5, got %v", result["quality_score"])
	}
}

func TestDataQualitySelectedColumns(t *testing.T) {
	f := frameFromCSV(t, "a,b\n1,2\n3,4\n")

	result, err := DataQuality(f, map[string]any{"columns": []any{"a", "missing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Несуществующие колонки отбрасываются
	if result["column_count"] != 1 {
		t.Errorf("expected 1 column, got %v", result["column_count"])
	}
}

// ScriptRegistry Tests

func TestScriptRegistry(t *testing.T) {
	r := NewScriptRegistry()

	_, err := r.Get("missing")
	if !errors.Is(err, ErrUnknownScript) {
		t.Errorf("expected ErrUnknownScript, got %v", err)
	}

	r.Register("noop", func(f *tabular.Frame, params map[string]any) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	script, err := r.Get("noop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := script(nil, nil)
	if err != nil || result["ok"] != true {
		t.Errorf("unexpected result: %v, %v", result, err)
	}

	if len(r.Names()) != 1 {
		t.Errorf("expected 1 name, got %v", r.Names())
	}
}

func TestExampleCustom(t *testing.T) {
	f := frameFromCSV(t, "v\n1\n2\n3\n")

	result, err := ExampleCustom(f, map[string]any{
		"target_column": "v",
		"multiplier":    float64(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calc := result["custom_calculation"].(map[string]any)
	sample := calc["sample_result"].(map[string]any)
	if sample["0"] != 2.0 || sample["2"] != 6.0 {
		t.Errorf("unexpected sample: %v", sample)
	}
}

func TestExampleCustomMissingColumn(t *testing.T) {
	f := frameFromCSV(t, "v\n1\n")

	_, err := ExampleCustom(f, map[string]any{"target_column": "missing"})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}
