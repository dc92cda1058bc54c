package worker

import (
	"fmt"
	"time"

	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/etl"
	"github.com/shaiso/Crucible/internal/tabular"
	"github.com/shaiso/Crucible/internal/telemetry"
)

// Executor выполняет процедуру обработки над таблицей.
type Executor struct {
	scripts *etl.ScriptRegistry
}

// NewExecutor создаёт Executor. Если registry nil, используется
// реестр со встроенными примерами скриптов.
func NewExecutor(scripts *etl.ScriptRegistry) *Executor {
	if scripts == nil {
		scripts = etl.DefaultScripts()
	}
	return &Executor{scripts: scripts}
}

// Execute выполняет процедуру указанного типа.
//
// Паника процедуры (скрипты пишут и люди) перехватывается
// и переводится в ошибку.
func (e *Executor) Execute(f *tabular.Frame, procType domain.ProcessingType, params map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("routine panic: %v", r)
		}
	}()

	start := time.Now()
	defer func() {
		telemetry.TaskDuration.WithLabelValues(string(procType)).Observe(time.Since(start).Seconds())
	}()

	switch procType {
	case domain.ProcessingRollingMean:
		return etl.RollingMean(f, params)
	case domain.ProcessingPeakDetection:
		return etl.PeakDetection(f, params)
	case domain.ProcessingDataQuality:
		return etl.DataQuality(f, params)
	case domain.ProcessingCustom:
		return e.executeCustom(f, params)
	default:
		return nil, fmt.Errorf("unknown processing type: %s", procType)
	}
}

// executeCustom запускает скрипт из реестра. Скрипту передаются
// только параметры из custom_params; имя скрипта в них не попадает.
func (e *Executor) executeCustom(f *tabular.Frame, params map[string]any) (map[string]any, error) {
	name, _ := params[domain.ParamScriptName].(string)
	if name == "" {
		return nil, fmt.Errorf("custom processing requires %s", domain.ParamScriptName)
	}

	script, err := e.scripts.Get(name)
	if err != nil {
		return nil, err
	}

	scriptParams, _ := params[domain.ParamCustomParams].(map[string]any)
	if scriptParams == nil {
		scriptParams = map[string]any{}
	}

	return script(f, scriptParams)
}
