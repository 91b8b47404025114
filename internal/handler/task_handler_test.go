package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/task"
)

// --- モック定義 ---

type mockTaskService struct {
	listFn         func(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error)
	getFn          func(ctx context.Context, userID, taskID string) (*model.Task, error)
	createFn       func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error)
	updateFn       func(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error)
	setCompletedFn func(ctx context.Context, userID, taskID string, completed bool) (*model.Task, error)
	deleteFn       func(ctx context.Context, userID, taskID string) error
}

func (m *mockTaskService) List(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, includeCompleted, targetDate)
	}
	return nil, nil
}

func (m *mockTaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, taskID)
	}
	return nil, nil
}

func (m *mockTaskService) Create(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockTaskService) Update(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, taskID, input)
	}
	return nil, nil
}

func (m *mockTaskService) SetCompleted(ctx context.Context, userID, taskID string, completed bool) (*model.Task, error) {
	if m.setCompletedFn != nil {
		return m.setCompletedFn(ctx, userID, taskID, completed)
	}
	return nil, nil
}

func (m *mockTaskService) Delete(ctx context.Context, userID, taskID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, taskID)
	}
	return nil
}

func testTask() *model.Task {
	due := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	return &model.Task{
		ID:        "t1",
		UserID:    "user-1",
		Title:     "レポート提出",
		Priority:  model.TaskPriorityHigh,
		Category:  "work",
		DueDate:   &due,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- テスト ---

func TestTaskList_Success(t *testing.T) {
	svc := &mockTaskService{
		listFn: func(_ context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error) {
			if userID != "user-1" {
				t.Errorf("userID = %s, want user-1", userID)
			}
			if !includeCompleted {
				t.Error("include_completed未指定時はtrueであるべき")
			}
			if !targetDate.IsZero() {
				t.Error("date未指定時はゼロ値であるべき")
			}
			return []*model.Task{testTask()}, nil
		},
	}
	h := NewTaskHandler(svc)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/tasks", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool           `json:"success"`
		Tasks   []taskResponse `json:"tasks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(resp.Tasks))
	}
	if resp.Tasks[0].DueDate == nil || *resp.Tasks[0].DueDate != "2024-03-20" {
		t.Errorf("due_date = %v, want 2024-03-20", resp.Tasks[0].DueDate)
	}
}

func TestTaskList_ExcludeCompleted(t *testing.T) {
	svc := &mockTaskService{
		listFn: func(_ context.Context, _ string, includeCompleted bool, _ time.Time) ([]*model.Task, error) {
			if includeCompleted {
				t.Error("include_completed=falseが渡されるべき")
			}
			return nil, nil
		},
	}
	h := NewTaskHandler(svc)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/tasks?include_completed=false", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestTaskCreate_ParsesDueDate(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(_ context.Context, _ string, input task.CreateInput) (*model.Task, error) {
			if input.Title != "レポート提出" {
				t.Errorf("title = %s", input.Title)
			}
			want := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
			if input.DueDate == nil || !input.DueDate.Equal(want) {
				t.Errorf("due_date = %v, want %v", input.DueDate, want)
			}
			return testTask(), nil
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title":"レポート提出","due_date":"2024-03-20","priority":"high"}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/tasks", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
}

func TestTaskCreate_InvalidDueDate(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := `{"title":"x","due_date":"20/03/2024"}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/tasks", body))

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

func TestTaskCreate_InvalidPriority(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(_ context.Context, _ string, input task.CreateInput) (*model.Task, error) {
			return nil, model.NewInvalidPriorityError(input.Priority)
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title":"x","priority":"urgent"}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/tasks", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTaskUpdate_ClearDueDate(t *testing.T) {
	svc := &mockTaskService{
		updateFn: func(_ context.Context, _, taskID string, input task.UpdateInput) (*model.Task, error) {
			if taskID != "t1" {
				t.Errorf("taskID = %s, want t1", taskID)
			}
			if !input.ClearDueDate {
				t.Error("clear_due_dateが渡されるべき")
			}
			return testTask(), nil
		},
	}
	h := NewTaskHandler(svc)

	req := withURLParam(authedRequest(http.MethodPut, "/api/tasks/t1", `{"clear_due_date":true}`), "id", "t1")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestTaskComplete_DefaultsToCompleted(t *testing.T) {
	svc := &mockTaskService{
		setCompletedFn: func(_ context.Context, _, taskID string, completed bool) (*model.Task, error) {
			if taskID != "t1" {
				t.Errorf("taskID = %s, want t1", taskID)
			}
			if !completed {
				t.Error("ボディ省略時は完了扱いにすべき")
			}
			done := testTask()
			done.IsCompleted = true
			now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
			done.CompletedAt = &now
			return done, nil
		},
	}
	h := NewTaskHandler(svc)

	req := withURLParam(authedRequest(http.MethodPatch, "/api/tasks/t1/complete", ""), "id", "t1")
	w := httptest.NewRecorder()
	h.Complete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool         `json:"success"`
		Task    taskResponse `json:"task"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Task.IsCompleted || resp.Task.CompletedAt == nil {
		t.Errorf("task = %+v", resp.Task)
	}
}

func TestTaskComplete_Uncomplete(t *testing.T) {
	svc := &mockTaskService{
		setCompletedFn: func(_ context.Context, _, _ string, completed bool) (*model.Task, error) {
			if completed {
				t.Error("completed=falseが渡されるべき")
			}
			return testTask(), nil
		},
	}
	h := NewTaskHandler(svc)

	req := withURLParam(authedRequest(http.MethodPatch, "/api/tasks/t1/complete", `{"completed":false}`), "id", "t1")
	w := httptest.NewRecorder()
	h.Complete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestTaskGet_NotFound(t *testing.T) {
	svc := &mockTaskService{
		getFn: func(_ context.Context, _, taskID string) (*model.Task, error) {
			return nil, model.NewTaskNotFoundError(taskID)
		},
	}
	h := NewTaskHandler(svc)

	req := withURLParam(authedRequest(http.MethodGet, "/api/tasks/missing", ""), "id", "missing")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestTaskDelete_Unauthorized(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/t1", nil)
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
