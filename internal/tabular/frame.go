package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Ошибки чтения табличных данных.
var (
	// ErrEmptyTable — в файле нет ни одной строки данных.
	ErrEmptyTable = errors.New("empty table")

	// ErrUnsupportedFormat — расширение файла не поддерживается.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Frame — таблица данных с именованными колонками.
//
// Ячейки хранятся как строки в том виде, в котором пришли из файла;
// числовая интерпретация выполняется по запросу (Floats). Отсутствующие
// и нечисловые значения числовых колонок представляются как NaN.
type Frame struct {
	// Header — имена колонок в порядке файла.
	Header []string

	// Records — строки данных (без заголовка).
	Records [][]string
}

// Supported возвращает true, если расширение файла умеет читать ReadFile.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".xlsx", ".xls":
		return true
	default:
		return false
	}
}

// ReadFile читает табличный файл, выбирая парсер по расширению.
// CSV и TXT разбираются encoding/csv, XLSX/XLS — excelize.
func ReadFile(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xls":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV читает CSV из reader'а. Первая строка — заголовок.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // рваные строки дополняются пустыми ячейками

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

// readExcel читает первый лист xlsx-файла.
func readExcel(path string) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*Frame, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	header := rows[0]
	records := rows[1:]
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	// Выравниваем строки по ширине заголовка
	for i, rec := range records {
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		records[i] = rec[:len(header)]
	}

	return &Frame{Header: header, Records: records}, nil
}

// NumRows возвращает количество строк данных.
func (f *Frame) NumRows() int {
	return len(f.Records)
}

// NumCols возвращает количество колонок.
func (f *Frame) NumCols() int {
	return len(f.Header)
}

// colIndex возвращает индекс колонки по имени.
func (f *Frame) colIndex(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn проверяет наличие колонки.
func (f *Frame) HasColumn(name string) bool {
	return f.colIndex(name) >= 0
}

// Floats возвращает колонку как []float64. Пустые и нечисловые
// ячейки — NaN. ok=false, если колонки нет.
func (f *Frame) Floats(name string) ([]float64, bool) {
	idx := f.colIndex(name)
	if idx < 0 {
		return nil, false
	}

	out := make([]float64, len(f.Records))
	for i, rec := range f.Records {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out, true
}

// IsNumeric возвращает true, если все непустые ячейки колонки — числа
// и хотя бы одна непустая ячейка есть.
func (f *Frame) IsNumeric(name string) bool {
	idx := f.colIndex(name)
	if idx < 0 {
		return false
	}

	seen := false
	for _, rec := range f.Records {
		cell := strings.TrimSpace(rec[idx])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// NumericColumns возвращает имена числовых колонок в порядке файла.
func (f *Frame) NumericColumns() []string {
	var cols []string
	for _, h := range f.Header {
		if f.IsNumeric(h) {
			cols = append(cols, h)
		}
	}
	return cols
}

// Cell возвращает значение ячейки для JSON-результата:
// число как float64, пустую ячейку как nil, остальное как строку.
func (f *Frame) Cell(row int, name string) any {
	idx := f.colIndex(name)
	if idx < 0 || row < 0 || row >= len(f.Records) {
		return nil
	}

	cell := strings.TrimSpace(f.Records[row][idx])
	if cell == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v
	}
	return cell
}

// Row возвращает строку как карту колонка → значение.
func (f *Frame) Row(i int) map[string]any {
	out := make(map[string]any, len(f.Header))
	for _, h := range f.Header {
		out[h] = f.Cell(i, h)
	}
	return out
}

// SampleRows возвращает первые n строк как карты.
func (f *Frame) SampleRows(n int) []map[string]any {
	if n > len(f.Records) {
		n = len(f.Records)
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		out[i] = f.Row(i)
	}
	return out
}

// Probe возвращает размеры таблицы в файле.
// Используется watcher'ом для структурной пробы.
func Probe(path string) (rows, cols int, err error) {
	f, err := ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	return f.NumRows(), f.NumCols(), nil
}
