// Package task はタスク管理のビジネスロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/repository"
	"github.com/hitoshi/lifesync/internal/security"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxCategoryLength    = 50
)

// Service はタスクに関するビジネスロジックを提供する。
// 全操作は所有ユーザーによるスコープを強制する。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
	}
}

// CreateInput はタスク作成のリクエスト内容を表す。
type CreateInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    string
	Category    string
}

// UpdateInput はタスク更新のリクエスト内容を表す。
// nilのフィールドは変更しない。ClearDueDate=trueで期日を解除する。
type UpdateInput struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *string
	Category     *string
}

// List はユーザーのタスク一覧を返す。
// targetDateがゼロ値でない場合はその日のタスク（期日一致または期日なし）に絞る。
func (s *Service) List(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID, includeCompleted, targetDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get は指定IDのタスクを取得する。所有者以外にはTASK_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil || task.UserID != userID {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return task, nil
}

// Create はタスクを作成する。タイトル等はサニタイズされる。
// 優先度未指定の場合はmediumになる。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タスクのタイトルを入力してください")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, model.NewValidationError(fmt.Sprintf("タイトルは%d文字以下で指定してください", maxTitleLength))
	}

	description := s.sanitizer.Sanitize(input.Description)
	if len([]rune(description)) > maxDescriptionLength {
		return nil, model.NewValidationError(fmt.Sprintf("説明は%d文字以下で指定してください", maxDescriptionLength))
	}

	category := s.sanitizer.Sanitize(input.Category)
	if len([]rune(category)) > maxCategoryLength {
		return nil, model.NewValidationError(fmt.Sprintf("カテゴリは%d文字以下で指定してください", maxCategoryLength))
	}

	priority := model.TaskPriority(input.Priority)
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, model.NewInvalidPriorityError(input.Priority)
	}

	var dueDate *time.Time
	if input.DueDate != nil {
		d := model.Date(*input.DueDate)
		dueDate = &d
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Priority:    priority,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)
	return task, nil
}

// Update はタスクの属性を更新する。指定されたフィールドのみを変更する。
func (s *Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := s.sanitizer.Sanitize(*input.Title)
		if title == "" {
			return nil, model.NewValidationError("タスクのタイトルを入力してください")
		}
		if len([]rune(title)) > maxTitleLength {
			return nil, model.NewValidationError(fmt.Sprintf("タイトルは%d文字以下で指定してください", maxTitleLength))
		}
		task.Title = title
	}
	if input.Description != nil {
		description := s.sanitizer.Sanitize(*input.Description)
		if len([]rune(description)) > maxDescriptionLength {
			return nil, model.NewValidationError(fmt.Sprintf("説明は%d文字以下で指定してください", maxDescriptionLength))
		}
		task.Description = description
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		d := model.Date(*input.DueDate)
		task.DueDate = &d
	}
	if input.Priority != nil {
		priority := model.TaskPriority(*input.Priority)
		if !priority.Valid() {
			return nil, model.NewInvalidPriorityError(*input.Priority)
		}
		task.Priority = priority
	}
	if input.Category != nil {
		category := s.sanitizer.Sanitize(*input.Category)
		if len([]rune(category)) > maxCategoryLength {
			return nil, model.NewValidationError(fmt.Sprintf("カテゴリは%d文字以下で指定してください", maxCategoryLength))
		}
		task.Category = category
	}
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// SetCompleted は完了状態を設定する。既に同じ状態の場合は何もしない。
func (s *Service) SetCompleted(ctx context.Context, userID, taskID string, completed bool) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if task.IsCompleted == completed {
		return task, nil
	}

	if err := s.taskRepo.SetCompleted(ctx, taskID, completed); err != nil {
		return nil, fmt.Errorf("failed to set task completed: %w", err)
	}

	task.IsCompleted = completed
	now := time.Now()
	if completed {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	task.UpdatedAt = now

	slog.Info("task completion updated",
		slog.String("task_id", taskID),
		slog.Bool("completed", completed),
	)
	return task, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	slog.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
	)
	return nil
}
