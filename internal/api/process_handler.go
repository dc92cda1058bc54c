package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/gateway"
	"github.com/shaiso/Crucible/internal/repo"
)

// SubmitProcessing принимает запрос на обработку файла.
// POST /api/v1/files/{id}/process
func (h *Handler) SubmitProcessing(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Type == "" {
		BadRequest(w, "type is required")
		return
	}

	submission, err := h.gateway.Submit(r.Context(), fileID, domain.ProcessingType(req.Type), req.Parameters)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrFileNotFound):
			NotFound(w, "file not found")
		case errors.Is(err, gateway.ErrInvalidParameters):
			BadRequest(w, err.Error())
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: submission})
}

// ListTasks возвращает список задач обработки.
// GET /api/v1/tasks?file_id=&type=&status=&limit=&offset=
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.TaskFilter{
		Type:   domain.ProcessingType(q.Get("type")),
		Status: domain.TaskStatus(strings.ToUpper(q.Get("status"))),
	}
	if v := q.Get("file_id"); v != "" {
		fileID, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid file_id")
			return
		}
		filter.FileID = &fileID
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}

	tasks, err := h.taskRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}

	List(w, result, len(result))
}

// GetTask возвращает задачу с результатом.
// GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task id")
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	Success(w, TaskFromDomain(*task))
}

// ExportTaskResult отдаёт результат завершённой задачи
// как скачиваемый файл.
// GET /api/v1/tasks/{id}/export?format=json|csv
func (h *Handler) ExportTaskResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task id")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		BadRequest(w, "format must be json or csv")
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	if task.Status != domain.TaskStatusCompleted {
		InvalidState(w, fmt.Sprintf("task is %s, export requires COMPLETED", task.Status))
		return
	}

	if format == "csv" {
		h.exportCSV(w, task)
		return
	}

	export := map[string]any{
		"task_id":     task.ID,
		"file_id":     task.FileID,
		"type":        string(task.Type),
		"parameters":  task.Parameters,
		"result":      task.Result,
		"finished_at": task.FinishedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("result_%s.json", task.ID)))
	json.NewEncoder(w).Encode(export)
}

// exportCSV пишет результат задачи в CSV: табличная часть результата
// (sample_data) построчно, остальное — парами ключ/значение.
func (h *Handler) exportCSV(w http.ResponseWriter, task *domain.ProcessingTask) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("result_%s.csv", task.ID)))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	// sample_data из БД приходит как []any, из свежего результата
	// воркера — как []map[string]any.
	var rows []any
	switch v := task.Result["sample_data"].(type) {
	case []any:
		rows = v
	case []map[string]any:
		rows = make([]any, len(v))
		for i, m := range v {
			rows[i] = m
		}
	}
	if len(rows) == 0 {
		cw.Write([]string{"key", "value"})
		keys := make([]string, 0, len(task.Result))
		for k := range task.Result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cw.Write([]string{k, formatCell(task.Result[k])})
		}
		return
	}

	// Заголовки — объединение ключей всех строк, в стабильном порядке.
	headerSet := make(map[string]struct{})
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		for k := range m {
			headerSet[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(headerSet))
	for k := range headerSet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	cw.Write(headers)
	record := make([]string, len(headers))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		for i, k := range headers {
			record[i] = formatCell(m[k])
		}
		cw.Write(record)
	}
}

// formatCell переводит значение результата в CSV-ячейку.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// ListScripts возвращает имена доступных пользовательских скриптов.
// GET /api/v1/scripts
func (h *Handler) ListScripts(w http.ResponseWriter, r *http.Request) {
	names := h.scripts.Names()
	List(w, names, len(names))
}
