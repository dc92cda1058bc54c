package etl

import (
	"math"
	"sort"
	"strings"

	"github.com/shaiso/Crucible/internal/tabular"
)

// DataQuality считает метрики качества данных по колонкам.
//
// Параметры:
//   - columns: список колонок (по умолчанию все)
//
// Для каждой колонки: тип, количество и доля пропусков; для числовых
// дополнительно min/max/mean/median/std и подсчёт нулей/отрицательных;
// для текстовых — количество уникальных значений и топ-5 по частоте.
// Итоговый quality_score = 100 - средняя доля пропусков.
func DataQuality(f *tabular.Frame, params map[string]any) (map[string]any, error) {
	columns := stringsParam(params, "columns")
	if columns == nil {
		columns = f.Header
	} else {
		// Отбрасываем несуществующие колонки, как это делал бы фильтр
		existing := columns[:0]
		for _, col := range columns {
			if f.HasColumn(col) {
				existing = append(existing, col)
			}
		}
		columns = existing
	}

	perColumn := make(map[string]any, len(columns))
	var missingSum float64

	for _, col := range columns {
		metrics := columnMetrics(f, col)
		perColumn[col] = metrics
		missingSum += metrics["missing_percentage"].(float64)
	}

	overallMissing := 0.0
	if len(columns) > 0 {
		overallMissing = round2(missingSum / float64(len(columns)))
	}

	return map[string]any{
		"row_count":                  f.NumRows(),
		"column_count":               len(columns),
		"columns":                    perColumn,
		"overall_missing_percentage": overallMissing,
		"quality_score":              round2(100 - overallMissing),
	}, nil
}

func columnMetrics(f *tabular.Frame, col string) map[string]any {
	total := f.NumRows()
	missing := 0
	var raw []string

	for i := 0; i < total; i++ {
		v := f.Cell(i, col)
		if v == nil {
			missing++
			continue
		}
		if s, ok := v.(string); ok {
			raw = append(raw, s)
		}
	}

	missingPct := 0.0
	if total > 0 {
		missingPct = round2(float64(missing) / float64(total) * 100)
	}

	metrics := map[string]any{
		"missing_count":      missing,
		"missing_percentage": missingPct,
	}

	if f.IsNumeric(col) {
		metrics["dtype"] = "float64"
		addNumericMetrics(metrics, f, col)
	} else {
		metrics["dtype"] = "object"
		addCategoricalMetrics(metrics, raw)
	}

	return metrics
}

func addNumericMetrics(metrics map[string]any, f *tabular.Frame, col string) {
	all, _ := f.Floats(col)

	var values []float64
	zeros, negatives := 0, 0
	for _, v := range all {
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		if v == 0 {
			zeros++
		}
		if v < 0 {
			negatives++
		}
	}

	if len(values) == 0 {
		return
	}

	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := 0.0
	if len(values) > 1 {
		// Выборочное стандартное отклонение, как pandas .std()
		std = math.Sqrt(variance / float64(len(values)-1))
	}

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	n := float64(len(all))
	metrics["min"] = sorted[0]
	metrics["max"] = sorted[len(sorted)-1]
	metrics["mean"] = mean
	metrics["median"] = median
	metrics["std"] = std
	metrics["zeros_count"] = zeros
	metrics["zeros_percentage"] = round2(float64(zeros) / n * 100)
	metrics["negative_count"] = negatives
	metrics["negative_percentage"] = round2(float64(negatives) / n * 100)
}

func addCategoricalMetrics(metrics map[string]any, values []string) {
	counts := make(map[string]int)
	for _, v := range values {
		counts[strings.TrimSpace(v)]++
	}

	type pair struct {
		value string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for v, c := range counts {
		pairs = append(pairs, pair{v, c})
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].count != pairs[b].count {
			return pairs[a].count > pairs[b].count
		}
		return pairs[a].value < pairs[b].value
	})

	top := make(map[string]int)
	for i, p := range pairs {
		if i >= 5 {
			break
		}
		top[p.value] = p.count
	}

	metrics["unique_count"] = len(counts)
	metrics["top_values"] = top
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
