package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lifesync/internal/habit"
	"github.com/hitoshi/lifesync/internal/metrics"
	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/model"
)

// HabitServiceInterface は習慣ハンドラーが必要とするサービスインターフェース。
type HabitServiceInterface interface {
	// List はユーザーの習慣一覧を返す。
	List(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error)
	// ListWithStatus は指定日の完了状態付きでアクティブ習慣一覧を返す。
	ListWithStatus(ctx context.Context, userID string, date time.Time) ([]*model.HabitStatus, error)
	// Get は習慣を取得する。
	Get(ctx context.Context, userID, habitID string) (*model.Habit, error)
	// Create は習慣を作成する。
	Create(ctx context.Context, userID string, input habit.CreateInput) (*model.Habit, error)
	// Update は習慣を更新する。
	Update(ctx context.Context, userID, habitID string, input habit.UpdateInput) (*model.Habit, error)
	// Delete は習慣と完了ログを削除する。
	Delete(ctx context.Context, userID, habitID string) error
	// Toggle は指定日の完了状態をトグルし、トグル後の状態を返す。
	Toggle(ctx context.Context, userID, habitID string, date time.Time) (bool, error)
	// MonthLogs は指定月の完了日をhabitID毎にまとめて返す。
	MonthLogs(ctx context.Context, userID string, year, month int) (map[string][]time.Time, error)
}

// HabitHandler は習慣管理のHTTPハンドラー。
type HabitHandler struct {
	service   HabitServiceInterface
	collector metrics.MetricsCollector
}

// NewHabitHandler はHabitHandlerを生成する。collectorはnilでもよい。
func NewHabitHandler(service HabitServiceInterface, collector metrics.MetricsCollector) *HabitHandler {
	return &HabitHandler{
		service:   service,
		collector: collector,
	}
}

// createHabitRequest は習慣作成リクエストのボディ。
type createHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// updateHabitRequest は習慣更新リクエストのボディ。nilのフィールドは変更しない。
type updateHabitRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

// toggleHabitRequest は完了トグルリクエストのボディ。日付未指定は今日扱い。
type toggleHabitRequest struct {
	Date string `json:"date"`
}

// habitResponse は習慣情報のAPIレスポンス。
type habitResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at"`
}

// habitStatusResponse は完了状態付きの習慣レスポンス。
type habitStatusResponse struct {
	habitResponse
	IsCompleted bool `json:"is_completed"`
}

func toHabitResponse(h *model.Habit) habitResponse {
	return habitResponse{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Color:       h.Color,
		Icon:        h.Icon,
		IsActive:    h.IsActive,
		SortOrder:   h.SortOrder,
		CreatedAt:   h.CreatedAt.Format(time.RFC3339),
	}
}

// List は習慣一覧を返す。
// GET /api/habits?active_only=true
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"
	habits, err := h.service.List(r.Context(), userID, activeOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]habitResponse, 0, len(habits))
	for _, hb := range habits {
		items = append(items, toHabitResponse(hb))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"habits":  items,
	})
}

// Create は習慣を作成する。
// POST /api/habits
func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	created, err := h.service.Create(r.Context(), userID, habit.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"habit":   toHabitResponse(created),
	})
}

// Get は習慣詳細を返す。
// GET /api/habits/{id}
func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
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
		"habit":   toHabitResponse(found),
	})
}

// Update は習慣を更新する。
// PUT /api/habits/{id}
func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req updateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), habit.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"habit":   toHabitResponse(updated),
	})
}

// Delete は習慣と完了ログを削除する。
// DELETE /api/habits/{id}
func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		"message": "習慣を削除しました。",
	})
}

// Toggle は指定日の完了状態をトグルする。
// POST /api/habits/{id}/toggle
func (h *HabitHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req toggleHabitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
			return
		}
	}

	var date time.Time
	if req.Date != "" {
		date, err = time.ParseInLocation(model.DateFormat, req.Date, time.UTC)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(req.Date))
			return
		}
	}

	completed, err := h.service.Toggle(r.Context(), userID, chi.URLParam(r, "id"), date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordHabitToggle(completed)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"completed": completed,
	})
}

// Logs は指定月の完了日をhabitID毎にまとめて返す。
// GET /api/habits/logs?year=2024&month=3
func (h *HabitHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	now := time.Now().UTC()
	year, ok := queryInt(w, r, "year", now.Year(), 1, 9999)
	if !ok {
		return
	}
	month, ok := queryInt(w, r, "month", int(now.Month()), 1, 12)
	if !ok {
		return
	}

	logs, err := h.service.MonthLogs(r.Context(), userID, year, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	formatted := make(map[string][]string, len(logs))
	for habitID, dates := range logs {
		days := make([]string, 0, len(dates))
		for _, d := range dates {
			days = append(days, d.Format(model.DateFormat))
		}
		formatted[habitID] = days
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"year":    year,
		"month":   month,
		"logs":    formatted,
	})
}

// Status は指定日の完了状態付きのアクティブ習慣一覧を返す。
// GET /api/habits/status?date=2024-03-15
func (h *HabitHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	date, ok := queryDate(w, r, "date", time.Now().UTC())
	if !ok {
		return
	}

	statuses, err := h.service.ListWithStatus(r.Context(), userID, date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]habitStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		items = append(items, habitStatusResponse{
			habitResponse: toHabitResponse(&st.Habit),
			IsCompleted:   st.IsCompleted,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    model.Date(date).Format(model.DateFormat),
		"habits":  items,
	})
}

// queryInt はクエリパラメータを整数として解析する。未指定はdefaultValueを使う。
// 解析失敗や範囲外の場合はエラーレスポンスを書き込みfalseを返す。
func queryInt(w http.ResponseWriter, r *http.Request, name string, defaultValue, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(name+"の値が不正です: "+raw))
		return 0, false
	}
	return v, true
}

// queryDate はクエリパラメータをYYYY-MM-DD形式の日付として解析する。
// 未指定はdefaultValueを使う。解析失敗の場合はエラーレスポンスを書き込みfalseを返す。
func queryDate(w http.ResponseWriter, r *http.Request, name string, defaultValue time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}
	d, err := time.ParseInLocation(model.DateFormat, raw, time.UTC)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(raw))
		return time.Time{}, false
	}
	return d, true
}
