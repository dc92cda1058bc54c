// Package worker выполняет задачи обработки файлов данных.
//
// Worker — stateless компонент системы, который:
//   - получает задачи из очереди RabbitMQ (event-driven);
//   - периодически проверяет PENDING задачи в БД (polling fallback);
//   - читает файл из локального или удалённого хранилища;
//   - выполняет процедуру обработки (rolling_mean, peak_detection,
//     data_quality или пользовательский скрипт из реестра);
//   - записывает результат и публикует событие task.update.
//
// Задача выполняется эффективно один раз: повторная доставка уже
// завершённой задачи подтверждается (ack) и отбрасывается. Перед
// записью терминального статуса задача перечитывается из БД — если её
// успел завершить другой воркер, результат не перезаписывается.
//
// Паника внутри процедуры не роняет процесс: она переводится в FAILED
// с текстом ошибки.
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди.
package worker
