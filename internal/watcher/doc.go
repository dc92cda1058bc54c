// Package watcher наблюдает за директорией с входящими файлами данных.
//
// # Обзор
//
// Watcher решает главную проблему ingestion: файл, появившийся в
// директории, может ещё дописываться. Обработка файла "на полпути"
// даёт усечённые данные, поэтому каждый путь проходит стабилизацию:
// файл считается готовым, когда модификаций не было settle window
// (по умолчанию 2s). Файл, который трогают непрерывно, всё равно
// передаётся в обработку после max wait (по умолчанию 30s) —
// принудительная передача логируется.
//
// # Структура
//
//   - watcher.go    — подписка на события fsnotify, health-check, стартовый обход
//   - tracker.go    — учёт путей: in-flight, processed, времена модификаций
//   - stabilizer.go — таймеры ожидания стабилизации (один на путь)
//   - ingestor.go   — передача файла: проверки, проба, копия, blob, запись в БД
//
// # Гарантии
//
//   - Путь не планируется дважды, пока ожидает стабилизации.
//   - Переданный путь не обрабатывается повторно по последующим событиям
//     модификации, пока его явно не освободят (Forget).
//   - Ошибка передачи освобождает путь: следующее событие повторит попытку.
//   - Watcher никогда не роняет процесс: все ошибки логируются.
package watcher
