package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Files
	mux.Handle("GET /api/v1/files", chain(http.HandlerFunc(h.ListFiles)))
	mux.Handle("POST /api/v1/files", chain(http.HandlerFunc(h.UploadFile)))
	mux.Handle("GET /api/v1/files/{id}", chain(http.HandlerFunc(h.GetFile)))
	mux.Handle("DELETE /api/v1/files/{id}", chain(http.HandlerFunc(h.DeleteFile)))
	mux.Handle("GET /api/v1/files/{id}/preview", chain(http.HandlerFunc(h.PreviewFile)))

	// Processing
	mux.Handle("POST /api/v1/files/{id}/process", chain(http.HandlerFunc(h.SubmitProcessing)))
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	mux.Handle("GET /api/v1/tasks/{id}", chain(http.HandlerFunc(h.GetTask)))
	mux.Handle("GET /api/v1/tasks/{id}/export", chain(http.HandlerFunc(h.ExportTaskResult)))
	mux.Handle("GET /api/v1/scripts", chain(http.HandlerFunc(h.ListScripts)))

	// Annotations
	mux.Handle("GET /api/v1/files/{id}/annotations", chain(http.HandlerFunc(h.ListAnnotations)))
	mux.Handle("POST /api/v1/files/{id}/annotations", chain(http.HandlerFunc(h.CreateAnnotation)))
	mux.Handle("GET /api/v1/annotations/{id}", chain(http.HandlerFunc(h.GetAnnotation)))
	mux.Handle("PUT /api/v1/annotations/{id}", chain(http.HandlerFunc(h.UpdateAnnotation)))
	mux.Handle("DELETE /api/v1/annotations/{id}", chain(http.HandlerFunc(h.DeleteAnnotation)))

	// Websocket-уведомления. Без logging middleware: соединение
	// живёт долго, запись в лог при каждом upgrade не нужна.
	mux.Handle("GET /ws/{client_id}", Recovery(h.logger)(http.HandlerFunc(h.ServeWS)))
}
