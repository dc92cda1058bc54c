package etl

import "errors"

// Ошибки процедур обработки.
var (
	// ErrUnknownScript — имя пользовательского скрипта не зарегистрировано.
	ErrUnknownScript = errors.New("unknown custom script")

	// ErrColumnNotFound — указанная колонка отсутствует в данных.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNoNumericColumns — в данных нет ни одной числовой колонки.
	ErrNoNumericColumns = errors.New("no numeric columns")
)
