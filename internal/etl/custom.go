package etl

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shaiso/Crucible/internal/tabular"
)

// Script — пользовательская процедура обработки.
// Получает табличные данные и параметры вызывающей стороны,
// возвращает JSON-сериализуемую карту результата.
type Script func(f *tabular.Frame, params map[string]any) (map[string]any, error)

// ScriptRegistry — закрытый реестр пользовательских процедур.
//
// Скрипты регистрируются при старте процесса; воркер разрешает
// только зарегистрированные имена. Реестр не потокобезопасен
// для записи — регистрация завершается до запуска воркеров.
type ScriptRegistry struct {
	scripts map[string]Script
}

// NewScriptRegistry создаёт пустой реестр.
func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{scripts: make(map[string]Script)}
}

// DefaultScripts создаёт реестр с предустановленными скриптами.
func DefaultScripts() *ScriptRegistry {
	r := NewScriptRegistry()
	r.Register("example_custom", ExampleCustom)
	return r
}

// Register добавляет скрипт под именем name.
func (r *ScriptRegistry) Register(name string, script Script) {
	r.scripts[name] = script
}

// Get возвращает скрипт по имени.
func (r *ScriptRegistry) Get(name string) (Script, error) {
	script, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return script, nil
}

// Names возвращает список зарегистрированных имён.
func (r *ScriptRegistry) Names() []string {
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	return names
}

// ExampleCustom — демонстрационный скрипт: умножает target_column
// на multiplier и возвращает выборку результата.
//
// Параметры:
//   - target_column: колонка для умножения
//   - multiplier: множитель (по умолчанию 1)
func ExampleCustom(f *tabular.Frame, params map[string]any) (map[string]any, error) {
	results := map[string]any{
		"message":    "example custom script executed",
		"input_rows": f.NumRows(),
		"input_cols": f.NumCols(),
	}

	target := stringParam(params, "target_column")
	if target == "" {
		results["info"] = "no target_column specified"
		return results, nil
	}

	if !f.HasColumn(target) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, target)
	}
	if !f.IsNumeric(target) {
		return nil, fmt.Errorf("column %q is not numeric", target)
	}

	multiplier := 1.0
	if m := floatParam(params, "multiplier"); m != nil {
		multiplier = *m
	}

	values, _ := f.Floats(target)
	limit := len(values)
	if limit > 5 {
		limit = 5
	}

	sample := make(map[string]any, limit)
	for i := 0; i < limit; i++ {
		if math.IsNaN(values[i]) {
			sample[strconv.Itoa(i)] = nil
			continue
		}
		sample[strconv.Itoa(i)] = values[i] * multiplier
	}

	results["custom_calculation"] = map[string]any{
		"target_column": target,
		"multiplier":    multiplier,
		"new_column":    fmt.Sprintf("%s_multiplied", target),
		"sample_result": sample,
	}

	return results, nil
}
