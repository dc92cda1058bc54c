// Package etl содержит процедуры обработки табличных данных.
//
// Встроенные процедуры:
//   - rolling_mean.go   — скользящее среднее по числовым колонкам
//   - peak_detection.go — поиск пиков в сигнале
//   - data_quality.go   — метрики качества данных
//
// Пользовательские процедуры регистрируются по имени в ScriptRegistry
// (custom.go). Реестр закрыт: воркер разрешает только предрегистрированные
// имена, произвольная загрузка кода не поддерживается.
//
// Каждая процедура — чистая функция над tabular.Frame и картой параметров,
// возвращающая JSON-сериализуемую карту результата. Ошибки процедур
// не фатальны для воркера: они превращаются в FAILED-задачу.
package etl
