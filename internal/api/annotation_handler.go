package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
)

// ListAnnotations возвращает аннотации файла.
// GET /api/v1/files/{id}/annotations
func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	_, err = h.fileRepo.GetByID(r.Context(), fileID)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	annotations, err := h.annotationRepo.ListByFileID(r.Context(), fileID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]AnnotationResponse, len(annotations))
	for i, a := range annotations {
		result[i] = AnnotationFromDomain(a)
	}

	List(w, result, len(result))
}

// CreateAnnotation создаёт аннотацию на файле.
// POST /api/v1/files/{id}/annotations
func (h *Handler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	var req CreateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	annType := domain.AnnotationType(req.Type)
	switch annType {
	case domain.AnnotationRegion, domain.AnnotationPoint, domain.AnnotationComment:
	default:
		BadRequest(w, "type must be region, point or comment")
		return
	}
	if annType == domain.AnnotationRegion && req.RangeEnd < req.RangeStart {
		BadRequest(w, "range_end must not precede range_start")
		return
	}
	if req.Label == "" {
		BadRequest(w, "label is required")
		return
	}

	file, err := h.fileRepo.GetByID(r.Context(), fileID)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	now := time.Now()
	annotation := &domain.Annotation{
		ID:         uuid.New(),
		FileID:     fileID,
		TaskID:     req.TaskID,
		Type:       annType,
		RangeStart: req.RangeStart,
		RangeEnd:   req.RangeEnd,
		Label:      req.Label,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.annotationRepo.Create(r.Context(), annotation); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Первая аннотация на обработанном файле переводит его в ANNOTATED.
	if file.Status == domain.FileStatusProcessed {
		if err := h.fileRepo.UpdateStatus(r.Context(), fileID, domain.FileStatusAnnotated); err != nil {
			h.logger.Warn("update file status failed", "file_id", fileID, "error", err)
		}
	}

	Created(w, AnnotationFromDomain(*annotation))
}

// GetAnnotation возвращает аннотацию по ID.
// GET /api/v1/annotations/{id}
func (h *Handler) GetAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid annotation id")
		return
	}

	annotation, err := h.annotationRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "annotation not found") {
		return
	}

	Success(w, AnnotationFromDomain(*annotation))
}

// UpdateAnnotation обновляет аннотацию.
// PUT /api/v1/annotations/{id}
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid annotation id")
		return
	}

	var req UpdateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	annotation, err := h.annotationRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "annotation not found") {
		return
	}

	if req.RangeStart != nil {
		annotation.RangeStart = *req.RangeStart
	}
	if req.RangeEnd != nil {
		annotation.RangeEnd = *req.RangeEnd
	}
	if req.Label != nil {
		annotation.Label = *req.Label
	}
	if req.Notes != nil {
		annotation.Notes = *req.Notes
	}
	if annotation.Type == domain.AnnotationRegion && annotation.RangeEnd < annotation.RangeStart {
		BadRequest(w, "range_end must not precede range_start")
		return
	}
	annotation.UpdatedAt = time.Now()

	if err := h.annotationRepo.Update(r.Context(), annotation); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, AnnotationFromDomain(*annotation))
}

// DeleteAnnotation удаляет аннотацию.
// DELETE /api/v1/annotations/{id}
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid annotation id")
		return
	}

	if err := h.annotationRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "annotation not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}
