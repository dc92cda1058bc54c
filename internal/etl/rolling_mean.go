package etl

import (
	"math"

	"github.com/shaiso/Crucible/internal/tabular"
)

// defaultWindowSize — окно скользящего среднего по умолчанию.
const defaultWindowSize = 5

// sampleRowLimit — сколько строк результата попадает в payload.
const sampleRowLimit = 10

// RollingMean считает скользящее среднее по числовым колонкам.
//
// Параметры:
//   - window_size: размер окна (по умолчанию 5)
//   - columns: список колонок (по умолчанию все числовые)
//
// Для каждой колонки C добавляется серия C_rolling_mean той же длины,
// что и данные; первые window_size-1 значений не определены (null).
// Окно, содержащее нечисловую ячейку, тоже даёт null.
func RollingMean(f *tabular.Frame, params map[string]any) (map[string]any, error) {
	window := intParam(params, "window_size", defaultWindowSize)
	if window < 1 {
		window = 1
	}

	columns := stringsParam(params, "columns")
	if columns == nil {
		columns = f.NumericColumns()
	}
	if len(columns) == 0 {
		return nil, ErrNoNumericColumns
	}

	smoothed := make(map[string][]any, len(columns))
	processedColumns := append([]string{}, f.Header...)

	for _, col := range columns {
		if !f.HasColumn(col) || !f.IsNumeric(col) {
			continue
		}
		values, _ := f.Floats(col)
		smoothed[col+"_rolling_mean"] = rollingMeanSeries(values, window)
		processedColumns = append(processedColumns, col+"_rolling_mean")
	}

	// Выборка первых строк вместе с новыми колонками
	sample := f.SampleRows(sampleRowLimit)
	for i := range sample {
		for name, series := range smoothed {
			sample[i][name] = series[i]
		}
	}

	return map[string]any{
		"original_columns":  f.Header,
		"processed_columns": processedColumns,
		"sample_data":       sample,
	}, nil
}

// rollingMeanSeries считает скользящее среднее одной серии.
// NaN на входе и неполные окна дают nil на выходе.
func rollingMeanSeries(values []float64, window int) []any {
	out := make([]any, len(values))

	var sum float64
	nanCount := 0

	for i, v := range values {
		if math.IsNaN(v) {
			nanCount++
		} else {
			sum += v
		}

		// Выталкиваем значение, вышедшее из окна
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				nanCount--
			} else {
				sum -= old
			}
		}

		if i < window-1 || nanCount > 0 {
			out[i] = nil
			continue
		}
		out[i] = sum / float64(window)
	}

	return out
}
