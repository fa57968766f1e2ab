package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ricirt/autoblog/internal/api/middleware"
	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/service"
)

// listLimit is the number of items returned by GET /queue.
const listLimit = 50

// EditLinker builds the admin edit address of a published article.
type EditLinker interface {
	EditURL(id int64) string
}

// QueueHandler handles the generate and queue management endpoints.
type QueueHandler struct {
	svc      *service.Dispatcher
	links    EditLinker
	defaults domain.Options
	logger   *zap.Logger
}

func NewQueueHandler(svc *service.Dispatcher, links EditLinker, defaults domain.Options, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, links: links, defaults: defaults, logger: logger}
}

type generateResponse struct {
	Message string  `json:"message"`
	IDs     []int64 `json:"ids"`
}

// Generate handles POST /api/v1/generate
//
// Fields missing from the body take the configured defaults.
func (h *QueueHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		mapError(w, err)
		return
	}

	ids, err := h.svc.Enqueue(r.Context(), req.Titles, req.Resolve(h.defaults))
	if err != nil {
		h.logger.Warn("enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, generateResponse{
		Message: fmt.Sprintf("%d article(s) queued.", len(ids)),
		IDs:     ids,
	})
}

type queueEntry struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Status       domain.Status `json:"status"`
	PostID       *int64        `json:"post_id"`
	EditURL      *string       `json:"edit_url"`
	ErrorMessage *string       `json:"error_message"`
	RetryCount   int           `json:"retry_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

// List handles GET /api/v1/queue
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), listLimit)
	if err != nil {
		mapError(w, err)
		return
	}

	out := make([]queueEntry, 0, len(items))
	for _, item := range items {
		e := queueEntry{
			ID:           item.ID,
			Title:        item.Title,
			Status:       item.Status,
			PostID:       item.ResultRef,
			ErrorMessage: item.ErrorMessage,
			RetryCount:   item.RetryCount,
			CreatedAt:    item.CreatedAt,
		}
		if item.ResultRef != nil {
			link := h.links.EditURL(*item.ResultRef)
			e.EditURL = &link
		}
		out = append(out, e)
	}
	respondJSON(w, http.StatusOK, out)
}

// Retry handles POST /api/v1/queue/{id}/retry
//
// Absent and non-retryable items both answer 400.
func (h *QueueHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Retry(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNotRetryable
		}
		mapError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Item re-queued.")
}

// Delete handles DELETE /api/v1/queue/{id}
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Item deleted.")
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondMessage(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}
