// Package cli реализует инструмент командной строки Crucible.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Crucible API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для работы с файлами данных и задачами обработки.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Crucible API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	files, err := client.ListFiles(cli.ListFilesOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: crucible file list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - file: list, show, upload, preview, delete
//   - task: list, show, submit, export, scripts
//
// Каждая группа создаётся через фабричную функцию (NewFileCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
