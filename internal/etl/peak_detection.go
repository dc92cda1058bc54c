package etl

import (
	"fmt"
	"math"
	"sort"

	"github.com/shaiso/Crucible/internal/tabular"
)

// PeakDetection ищет локальные максимумы в одной колонке сигнала.
//
// Параметры:
//   - column: колонка сигнала (по умолчанию первая числовая)
//   - height: минимальная высота пика
//   - distance: минимальное расстояние между пиками (в строках)
//   - prominence: минимальная выраженность пика
//
// Результат: {"peaks": [индексы], "properties": {...}}.
// properties содержит peak_heights, если задан height,
// и prominences, если задан prominence.
func PeakDetection(f *tabular.Frame, params map[string]any) (map[string]any, error) {
	column := stringParam(params, "column")
	if column == "" {
		numeric := f.NumericColumns()
		if len(numeric) == 0 {
			return nil, ErrNoNumericColumns
		}
		column = numeric[0]
	}
	if !f.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	y, _ := f.Floats(column)

	height := floatParam(params, "height")
	distance := intParam(params, "distance", 0)
	minProminence := floatParam(params, "prominence")

	peaks := localMaxima(y)

	if height != nil {
		peaks = filterByHeight(y, peaks, *height)
	}

	var prominences []float64
	if minProminence != nil {
		peaks, prominences = filterByProminence(y, peaks, *minProminence)
	}

	if distance > 1 {
		peaks, prominences = enforceDistance(y, peaks, prominences, distance)
	}

	properties := map[string]any{}
	if height != nil {
		heights := make([]float64, len(peaks))
		for i, p := range peaks {
			heights[i] = y[p]
		}
		properties["peak_heights"] = heights
	}
	if minProminence != nil {
		properties["prominences"] = prominences
	}

	return map[string]any{
		"peaks":      peaks,
		"properties": properties,
	}, nil
}

// localMaxima возвращает индексы строгих локальных максимумов.
// Для плато пиком считается середина.
func localMaxima(y []float64) []int {
	var peaks []int

	i := 1
	for i < len(y)-1 {
		if math.IsNaN(y[i]) || !(y[i] > y[i-1]) {
			i++
			continue
		}

		// Протягиваем плато вправо
		j := i
		for j < len(y)-1 && y[j+1] == y[i] {
			j++
		}

		if j < len(y)-1 && y[j+1] < y[i] {
			peaks = append(peaks, (i+j)/2)
		}
		i = j + 1
	}

	return peaks
}

func filterByHeight(y []float64, peaks []int, height float64) []int {
	out := peaks[:0]
	for _, p := range peaks {
		if y[p] >= height {
			out = append(out, p)
		}
	}
	return out
}

// prominence вычисляет выраженность пика: высоту над самой высокой
// из двух опорных точек (минимумы до ближайшей более высокой точки
// слева и справа).
func prominence(y []float64, peak int) float64 {
	left := y[peak]
	for i := peak - 1; i >= 0; i-- {
		if y[i] > y[peak] {
			break
		}
		if y[i] < left {
			left = y[i]
		}
	}

	right := y[peak]
	for i := peak + 1; i < len(y); i++ {
		if y[i] > y[peak] {
			break
		}
		if y[i] < right {
			right = y[i]
		}
	}

	return y[peak] - math.Max(left, right)
}

func filterByProminence(y []float64, peaks []int, min float64) ([]int, []float64) {
	var outPeaks []int
	var outProm []float64

	for _, p := range peaks {
		prom := prominence(y, p)
		if prom >= min {
			outPeaks = append(outPeaks, p)
			outProm = append(outProm, prom)
		}
	}
	return outPeaks, outProm
}

// enforceDistance убирает пики ближе distance друг к другу,
// оставляя более высокие (как scipy: приоритет по высоте).
func enforceDistance(y []float64, peaks []int, prominences []float64, distance int) ([]int, []float64) {
	type indexed struct {
		pos  int // позиция в исходном списке peaks
		peak int
	}

	order := make([]indexed, len(peaks))
	for i, p := range peaks {
		order[i] = indexed{pos: i, peak: p}
	}
	sort.Slice(order, func(a, b int) bool {
		return y[order[a].peak] > y[order[b].peak]
	})

	removed := make([]bool, len(peaks))
	for _, cand := range order {
		if removed[cand.pos] {
			continue
		}
		for i, p := range peaks {
			if i == cand.pos || removed[i] {
				continue
			}
			if abs(p-cand.peak) < distance {
				removed[i] = true
			}
		}
	}

	var outPeaks []int
	var outProm []float64
	for i, p := range peaks {
		if removed[i] {
			continue
		}
		outPeaks = append(outPeaks, p)
		if prominences != nil {
			outProm = append(outProm, prominences[i])
		}
	}
	return outPeaks, outProm
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
