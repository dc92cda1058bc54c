package tabular

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `time,value,label
0,10.5,a
1,11.0,b
2,,a
3,9.25,c
4,abc,a
`

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

// ReadCSV Tests

func TestReadCSV(t *testing.T) {
	f := sampleFrame(t)

	if f.NumRows() != 5 {
		t.Errorf("expected 5 rows, got %d", f.NumRows())
	}
	if f.NumCols() != 3 {
		t.Errorf("expected 3 columns, got %d", f.NumCols())
	}
	if !f.HasColumn("value") {
		t.Error("should have column value")
	}
	if f.HasColumn("missing") {
		t.Error("should not have column missing")
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	// Рваные строки дополняются пустыми ячейками
	f, err := ReadCSV(strings.NewReader("a,b,c\n1,2\n4,5,6,7\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", f.NumRows())
	}
	if got := f.Cell(0, "c"); got != nil {
		t.Errorf("expected nil for padded cell, got %v", got)
	}
	if got := f.Cell(1, "c"); got != 6.0 {
		t.Errorf("expected 6, got %v", got)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}

	// Только заголовок — тоже пустая таблица
	_, err = ReadCSV(strings.NewReader("a,b\n"))
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}
}

// Frame Tests

func TestFloats(t *testing.T) {
	f := sampleFrame(t)

	values, ok := f.Floats("value")
	if !ok {
		t.Fatal("expected column value")
	}
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}

	if values[0] != 10.5 {
		t.Errorf("expected 10.5, got %v", values[0])
	}
	// Пустая и нечисловая ячейки — NaN
	if !math.IsNaN(values[2]) {
		t.Errorf("expected NaN for empty cell, got %v", values[2])
	}
	if !math.IsNaN(values[4]) {
		t.Errorf("expected NaN for non-numeric cell, got %v", values[4])
	}

	if _, ok := f.Floats("missing"); ok {
		t.Error("expected ok=false for missing column")
	}
}

func TestNumericColumns(t *testing.T) {
	f := sampleFrame(t)

	// value содержит "abc" — не числовая; time числовая; label текстовая
	cols := f.NumericColumns()
	if len(cols) != 1 || cols[0] != "time" {
		t.Errorf("expected [time], got %v", cols)
	}

	if f.IsNumeric("value") {
		t.Error("value should not be numeric")
	}
	if !f.IsNumeric("time") {
		t.Error("time should be numeric")
	}
}

func TestCell(t *testing.T) {
	f := sampleFrame(t)

	if got := f.Cell(0, "value"); got != 10.5 {
		t.Errorf("expected 10.5, got %v", got)
	}
	if got := f.Cell(2, "value"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := f.Cell(0, "label"); got != "a" {
		t.Errorf("expected a, got %v", got)
	}
	if got := f.Cell(99, "value"); got != nil {
		t.Errorf("expected nil for out of range, got %v", got)
	}
}

func TestSampleRows(t *testing.T) {
	f := sampleFrame(t)

	rows := f.SampleRows(2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1]["label"] != "b" {
		t.Errorf("expected b, got %v", rows[1]["label"])
	}

	// Запрос больше данных — возвращаются все строки
	rows = f.SampleRows(100)
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d", len(rows))
	}
}

// ReadFile / Probe Tests

func TestSupported(t *testing.T) {
	for _, path := range []string{"a.csv", "b.XLSX", "c.txt", "d.xls"} {
		if !Supported(path) {
			t.Errorf("%s should be supported", path)
		}
	}
	for _, path := range []string{"a.json", "b.pdf", "noext"} {
		if Supported(path) {
			t.Errorf("%s should not be supported", path)
		}
	}
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("data.json")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, cols, err := Probe(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 5 || cols != 3 {
		t.Errorf("expected 5x3, got %dx%d", rows, cols)
	}
}
