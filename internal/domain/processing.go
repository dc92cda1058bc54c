package domain

// ProcessingType — тип процедуры обработки.
//
// Закрытый набор встроенных процедур плюс "custom" — процедура,
// выбираемая по имени из предрегистрированного реестра скриптов.
// Произвольная динамическая загрузка кода не поддерживается.
type ProcessingType string

const (
	// ProcessingRollingMean — скользящее среднее по числовым колонкам.
	ProcessingRollingMean ProcessingType = "rolling_mean"

	// ProcessingPeakDetection — поиск пиков в сигнале.
	ProcessingPeakDetection ProcessingType = "peak_detection"

	// ProcessingDataQuality — оценка качества данных по колонкам.
	ProcessingDataQuality ProcessingType = "data_quality"

	// ProcessingCustom — пользовательский скрипт из реестра.
	// Требует параметр "custom_script_name".
	ProcessingCustom ProcessingType = "custom"
)

// ParamScriptName — ключ параметров с именем пользовательского скрипта.
const ParamScriptName = "custom_script_name"

// ParamCustomParams — ключ, под которым параметры вызывающей стороны
// передаются в пользовательский скрипт.
const ParamCustomParams = "custom_params"

// IsValid возвращает true для известного типа обработки.
func (t ProcessingType) IsValid() bool {
	switch t {
	case ProcessingRollingMean, ProcessingPeakDetection, ProcessingDataQuality, ProcessingCustom:
		return true
	default:
		return false
	}
}
