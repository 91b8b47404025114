package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// List はユーザーのタスク一覧を返す。
	List(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error)
	// Get はタスクを取得する。
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	// Create はタスクを作成する。
	Create(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error)
	// Update はタスクを更新する。
	Update(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error)
	// SetCompleted は完了フラグを更新する。
	SetCompleted(ctx context.Context, userID, taskID string, completed bool) (*model.Task, error)
	// Delete はタスクを削除する。
	Delete(ctx context.Context, userID, taskID string) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// updateTaskRequest はタスク更新リクエストのボディ。nilのフィールドは変更しない。
// ClearDueDate=trueで期日を解除する。
type updateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	ClearDueDate bool    `json:"clear_due_date"`
	Priority     *string `json:"priority"`
	Category     *string `json:"category"`
}

// completeTaskRequest は完了フラグ更新リクエストのボディ。省略時は完了扱い。
type completeTaskRequest struct {
	Completed *bool `json:"completed"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsCompleted bool    `json:"is_completed"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at"`
}

func toTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    string(t.Priority),
		Category:    t.Category,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(model.DateFormat)
		resp.DueDate = &due
	}
	if t.CompletedAt != nil {
		completed := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

// List はタスク一覧を返す。
// GET /api/tasks?include_completed=true&date=2024-03-15
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	includeCompleted := r.URL.Query().Get("include_completed") != "false"
	targetDate, ok := queryDate(w, r, "date", time.Time{})
	if !ok {
		return
	}

	tasks, err := h.service.List(r.Context(), userID, includeCompleted, targetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tasks":   items,
	})
}

// Create はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	input := task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	}
	if req.DueDate != "" {
		due, err := time.ParseInLocation(model.DateFormat, req.DueDate, time.UTC)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(req.DueDate))
			return
		}
		input.DueDate = &due
	}

	created, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"task":    toTaskResponse(created),
	})
}

// Get はタスク詳細を返す。
// GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	found, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"task":    toTaskResponse(found),
	})
}

// Update はタスクを更新する。
// PUT /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	input := task.UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		ClearDueDate: req.ClearDueDate,
		Priority:     req.Priority,
		Category:     req.Category,
	}
	if req.DueDate != nil {
		due, err := time.ParseInLocation(model.DateFormat, *req.DueDate, time.UTC)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(*req.DueDate))
			return
		}
		input.DueDate = &due
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"task":    toTaskResponse(updated),
	})
}

// Complete は完了フラグを更新する。ボディ省略時は完了にする。
// PATCH /api/tasks/{id}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	completed := true
	if r.Body != nil && r.ContentLength != 0 {
		var req completeTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
			return
		}
		if req.Completed != nil {
			completed = *req.Completed
		}
	}

	updated, err := h.service.SetCompleted(r.Context(), userID, chi.URLParam(r, "id"), completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"task":    toTaskResponse(updated),
	})
}

// Delete はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "タスクを削除しました。",
	})
}
