package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lifesync/internal/habit"
	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/model"
)

// --- モック定義 ---

type mockHabitService struct {
	listFn           func(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error)
	listWithStatusFn func(ctx context.Context, userID string, date time.Time) ([]*model.HabitStatus, error)
	getFn            func(ctx context.Context, userID, habitID string) (*model.Habit, error)
	createFn         func(ctx context.Context, userID string, input habit.CreateInput) (*model.Habit, error)
	updateFn         func(ctx context.Context, userID, habitID string, input habit.UpdateInput) (*model.Habit, error)
	deleteFn         func(ctx context.Context, userID, habitID string) error
	toggleFn         func(ctx context.Context, userID, habitID string, date time.Time) (bool, error)
	monthLogsFn      func(ctx context.Context, userID string, year, month int) (map[string][]time.Time, error)
}

func (m *mockHabitService) List(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, activeOnly)
	}
	return nil, nil
}

func (m *mockHabitService) ListWithStatus(ctx context.Context, userID string, date time.Time) ([]*model.HabitStatus, error) {
	if m.listWithStatusFn != nil {
		return m.listWithStatusFn(ctx, userID, date)
	}
	return nil, nil
}

func (m *mockHabitService) Get(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, habitID)
	}
	return nil, nil
}

func (m *mockHabitService) Create(ctx context.Context, userID string, input habit.CreateInput) (*model.Habit, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockHabitService) Update(ctx context.Context, userID, habitID string, input habit.UpdateInput) (*model.Habit, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, habitID, input)
	}
	return nil, nil
}

func (m *mockHabitService) Delete(ctx context.Context, userID, habitID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, habitID)
	}
	return nil
}

func (m *mockHabitService) Toggle(ctx context.Context, userID, habitID string, date time.Time) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, habitID, date)
	}
	return false, nil
}

func (m *mockHabitService) MonthLogs(ctx context.Context, userID string, year, month int) (map[string][]time.Time, error) {
	if m.monthLogsFn != nil {
		return m.monthLogsFn(ctx, userID, year, month)
	}
	return nil, nil
}

// mockMetricsCollector はハンドラーテスト用のメトリクス収集モック。
type mockMetricsCollector struct {
	completedToggles   atomic.Int64
	uncompletedToggles atomic.Int64
}

func (m *mockMetricsCollector) RecordReportSendSuccess(period string) {}

func (m *mockMetricsCollector) RecordReportSendFailure(period, reason string) {}

func (m *mockMetricsCollector) RecordBatchDuration(period string, duration time.Duration) {}

func (m *mockMetricsCollector) RecordHTTPStatus(statusCode int) {}

func (m *mockMetricsCollector) RecordHabitToggle(completed bool) {
	if completed {
		m.completedToggles.Add(1)
	} else {
		m.uncompletedToggles.Add(1)
	}
}

func testHabit() *model.Habit {
	return &model.Habit{
		ID:        "h1",
		UserID:    "user-1",
		Name:      "読書",
		Color:     "#4F46E5",
		IsActive:  true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// authedRequest は認証済みユーザーIDをコンテキストに持つリクエストを生成する。
func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
}

// withURLParam はchiのURLパラメータをリクエストに注入する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- テスト ---

func TestHabitList_Success(t *testing.T) {
	svc := &mockHabitService{
		listFn: func(_ context.Context, userID string, activeOnly bool) ([]*model.Habit, error) {
			if userID != "user-1" {
				t.Errorf("userID = %s, want user-1", userID)
			}
			if activeOnly {
				t.Error("active_only未指定時はfalseであるべき")
			}
			return []*model.Habit{testHabit()}, nil
		},
	}
	h := NewHabitHandler(svc, nil)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/habits", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool            `json:"success"`
		Habits  []habitResponse `json:"habits"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Habits) != 1 || resp.Habits[0].Name != "読書" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHabitList_Unauthorized(t *testing.T) {
	h := NewHabitHandler(&mockHabitService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/habits", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHabitCreate_Success(t *testing.T) {
	svc := &mockHabitService{
		createFn: func(_ context.Context, _ string, input habit.CreateInput) (*model.Habit, error) {
			if input.Name != "読書" || input.Color != "#ff0000" {
				t.Errorf("input = %+v", input)
			}
			return testHabit(), nil
		},
	}
	h := NewHabitHandler(svc, nil)

	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/habits", `{"name":"読書","color":"#ff0000"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
}

func TestHabitGet_NotFound(t *testing.T) {
	svc := &mockHabitService{
		getFn: func(_ context.Context, _, habitID string) (*model.Habit, error) {
			return nil, model.NewHabitNotFoundError(habitID)
		},
	}
	h := NewHabitHandler(svc, nil)

	req := withURLParam(authedRequest(http.MethodGet, "/api/habits/missing", ""), "id", "missing")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeHabitNotFound {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeHabitNotFound)
	}
}

func TestHabitUpdate_PartialFields(t *testing.T) {
	svc := &mockHabitService{
		updateFn: func(_ context.Context, _, habitID string, input habit.UpdateInput) (*model.Habit, error) {
			if habitID != "h1" {
				t.Errorf("habitID = %s, want h1", habitID)
			}
			if input.Name == nil || *input.Name != "瞑想" {
				t.Error("nameが渡されるべき")
			}
			if input.Color != nil {
				t.Error("未指定のcolorはnilであるべき")
			}
			return testHabit(), nil
		},
	}
	h := NewHabitHandler(svc, nil)

	req := withURLParam(authedRequest(http.MethodPut, "/api/habits/h1", `{"name":"瞑想"}`), "id", "h1")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHabitToggle_RecordsMetric(t *testing.T) {
	svc := &mockHabitService{
		toggleFn: func(_ context.Context, _, habitID string, date time.Time) (bool, error) {
			if habitID != "h1" {
				t.Errorf("habitID = %s, want h1", habitID)
			}
			if !date.IsZero() {
				t.Error("日付未指定時はゼロ値を渡すべき")
			}
			return true, nil
		},
	}
	collector := &mockMetricsCollector{}
	h := NewHabitHandler(svc, collector)

	req := withURLParam(authedRequest(http.MethodPost, "/api/habits/h1/toggle", ""), "id", "h1")
	w := httptest.NewRecorder()
	h.Toggle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if collector.completedToggles.Load() != 1 {
		t.Errorf("completedToggles = %d, want 1", collector.completedToggles.Load())
	}

	// トグル結果はcompletedキーで返す
	var resp struct {
		Success   bool `json:"success"`
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Completed {
		t.Error("completed = false, want true")
	}
}

func TestHabitToggle_WithDate(t *testing.T) {
	svc := &mockHabitService{
		toggleFn: func(_ context.Context, _, _ string, date time.Time) (bool, error) {
			want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
			if !date.Equal(want) {
				t.Errorf("date = %v, want %v", date, want)
			}
			return false, nil
		},
	}
	collector := &mockMetricsCollector{}
	h := NewHabitHandler(svc, collector)

	req := withURLParam(authedRequest(http.MethodPost, "/api/habits/h1/toggle", `{"date":"2024-03-15"}`), "id", "h1")
	w := httptest.NewRecorder()
	h.Toggle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if collector.uncompletedToggles.Load() != 1 {
		t.Errorf("uncompletedToggles = %d, want 1", collector.uncompletedToggles.Load())
	}
}

func TestHabitToggle_InvalidDate(t *testing.T) {
	h := NewHabitHandler(&mockHabitService{}, nil)

	req := withURLParam(authedRequest(http.MethodPost, "/api/habits/h1/toggle", `{"date":"03/15/2024"}`), "id", "h1")
	w := httptest.NewRecorder()
	h.Toggle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidDate {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeInvalidDate)
	}
}

func TestHabitLogs_FormatsDates(t *testing.T) {
	svc := &mockHabitService{
		monthLogsFn: func(_ context.Context, _ string, year, month int) (map[string][]time.Time, error) {
			if year != 2024 || month != 3 {
				t.Errorf("year/month = %d/%d, want 2024/3", year, month)
			}
			return map[string][]time.Time{
				"h1": {time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	h := NewHabitHandler(svc, nil)

	w := httptest.NewRecorder()
	h.Logs(w, authedRequest(http.MethodGet, "/api/habits/logs?year=2024&month=3", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool                `json:"success"`
		Logs    map[string][]string `json:"logs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Logs["h1"]) != 1 || resp.Logs["h1"][0] != "2024-03-05" {
		t.Errorf("logs = %v", resp.Logs)
	}
}

func TestHabitLogs_InvalidMonth(t *testing.T) {
	h := NewHabitHandler(&mockHabitService{}, nil)

	w := httptest.NewRecorder()
	h.Logs(w, authedRequest(http.MethodGet, "/api/habits/logs?year=2024&month=13", ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHabitStatus_ReturnsCompletionState(t *testing.T) {
	svc := &mockHabitService{
		listWithStatusFn: func(_ context.Context, _ string, date time.Time) ([]*model.HabitStatus, error) {
			want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
			if !date.Equal(want) {
				t.Errorf("date = %v, want %v", date, want)
			}
			return []*model.HabitStatus{
				{Habit: *testHabit(), IsCompleted: true},
			}, nil
		},
	}
	h := NewHabitHandler(svc, nil)

	w := httptest.NewRecorder()
	h.Status(w, authedRequest(http.MethodGet, "/api/habits/status?date=2024-03-15", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool                  `json:"success"`
		Date    string                `json:"date"`
		Habits  []habitStatusResponse `json:"habits"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Date != "2024-03-15" {
		t.Errorf("date = %s, want 2024-03-15", resp.Date)
	}
	if len(resp.Habits) != 1 || !resp.Habits[0].IsCompleted {
		t.Errorf("habits = %+v", resp.Habits)
	}
}

func TestHabitDelete_Success(t *testing.T) {
	deleted := false
	svc := &mockHabitService{
		deleteFn: func(_ context.Context, _, habitID string) error {
			deleted = true
			if habitID != "h1" {
				t.Errorf("habitID = %s, want h1", habitID)
			}
			return nil
		},
	}
	h := NewHabitHandler(svc, nil)

	req := withURLParam(authedRequest(http.MethodDelete, "/api/habits/h1", ""), "id", "h1")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !deleted {
		t.Error("Deleteが呼ばれるべき")
	}
}
