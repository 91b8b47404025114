// Package habit は習慣の管理と完了トグルのビジネスロジックを提供する。
package habit

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
	maxNameLength        = 100
	maxDescriptionLength = 500
	defaultColor         = "#4F46E5"
)

// Service は習慣に関するビジネスロジックを提供する。
// 全操作は所有ユーザーによるスコープを強制する。
type Service struct {
	habitRepo repository.HabitRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(habitRepo repository.HabitRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		habitRepo: habitRepo,
		sanitizer: sanitizer,
	}
}

// CreateInput は習慣作成のリクエスト内容を表す。
type CreateInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// UpdateInput は習慣更新のリクエスト内容を表す。
// nilのフィールドは変更しない。
type UpdateInput struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
	IsActive    *bool
	SortOrder   *int
}

// List はユーザーの習慣一覧を返す。
// activeOnly=trueの場合はアクティブな習慣のみを返す。
func (s *Service) List(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error) {
	habits, err := s.habitRepo.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	return habits, nil
}

// ListWithStatus はユーザーのアクティブ習慣一覧を、指定日の完了状態付きで返す。
func (s *Service) ListWithStatus(ctx context.Context, userID string, date time.Time) ([]*model.HabitStatus, error) {
	habits, err := s.habitRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	day := model.Date(date)
	statuses := make([]*model.HabitStatus, 0, len(habits))
	for _, h := range habits {
		dates, err := s.habitRepo.ListCompletionDates(ctx, h.ID, day)
		if err != nil {
			return nil, fmt.Errorf("failed to list completion dates: %w", err)
		}
		completed := false
		for _, d := range dates {
			if d.Equal(day) {
				completed = true
				break
			}
		}
		statuses = append(statuses, &model.HabitStatus{Habit: *h, IsCompleted: completed})
	}
	return statuses, nil
}

// Get は指定IDの習慣を取得する。所有者以外にはHABIT_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	habit, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to find habit: %w", err)
	}
	if habit == nil || habit.UserID != userID {
		return nil, model.NewHabitNotFoundError(habitID)
	}
	return habit, nil
}

// Create は習慣を作成する。名前と説明はサニタイズされる。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Habit, error) {
	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("習慣名を入力してください")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("習慣名は%d文字以下で指定してください", maxNameLength))
	}

	description := s.sanitizer.Sanitize(input.Description)
	if len([]rune(description)) > maxDescriptionLength {
		return nil, model.NewValidationError(fmt.Sprintf("説明は%d文字以下で指定してください", maxDescriptionLength))
	}

	color := input.Color
	if color == "" {
		color = defaultColor
	}

	// 新規習慣は既存の末尾に並ぶ
	count, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}

	now := time.Now()
	habit := &model.Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Color:       color,
		Icon:        input.Icon,
		IsActive:    true,
		SortOrder:   count,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.habitRepo.Create(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	slog.Info("habit created",
		slog.String("habit_id", habit.ID),
		slog.String("user_id", userID),
	)
	return habit, nil
}

// Update は習慣の属性を更新する。指定されたフィールドのみを変更する。
func (s *Service) Update(ctx context.Context, userID, habitID string, input UpdateInput) (*model.Habit, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := s.sanitizer.Sanitize(*input.Name)
		if name == "" {
			return nil, model.NewValidationError("習慣名を入力してください")
		}
		if len([]rune(name)) > maxNameLength {
			return nil, model.NewValidationError(fmt.Sprintf("習慣名は%d文字以下で指定してください", maxNameLength))
		}
		habit.Name = name
	}
	if input.Description != nil {
		description := s.sanitizer.Sanitize(*input.Description)
		if len([]rune(description)) > maxDescriptionLength {
			return nil, model.NewValidationError(fmt.Sprintf("説明は%d文字以下で指定してください", maxDescriptionLength))
		}
		habit.Description = description
	}
	if input.Color != nil {
		habit.Color = *input.Color
	}
	if input.Icon != nil {
		habit.Icon = *input.Icon
	}
	if input.IsActive != nil {
		habit.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		habit.SortOrder = *input.SortOrder
	}
	habit.UpdatedAt = time.Now()

	if err := s.habitRepo.Update(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	return habit, nil
}

// Delete は習慣と関連する完了ログを削除する。
func (s *Service) Delete(ctx context.Context, userID, habitID string) error {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return err
	}

	if err := s.habitRepo.Delete(ctx, habitID); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	slog.Info("habit deleted",
		slog.String("habit_id", habitID),
		slog.String("user_id", userID),
	)
	return nil
}

// Toggle は指定日の完了状態をトグルし、トグル後の状態を返す。
// 日付未指定（ゼロ値）の場合は今日として扱う。
func (s *Service) Toggle(ctx context.Context, userID, habitID string, date time.Time) (bool, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return false, err
	}

	if date.IsZero() {
		date = time.Now()
	}

	completed, err := s.habitRepo.ToggleCompletion(ctx, habitID, date)
	if err != nil {
		return false, fmt.Errorf("failed to toggle completion: %w", err)
	}

	slog.Info("habit completion toggled",
		slog.String("habit_id", habitID),
		slog.String("date", model.Date(date).Format(model.DateFormat)),
		slog.Bool("completed", completed),
	)
	return completed, nil
}

// ListLogs は習慣の完了日一覧を返す。
// sinceがゼロ値でない場合はsince以降の日付のみを返す。
func (s *Service) ListLogs(ctx context.Context, userID, habitID string, since time.Time) ([]time.Time, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}

	dates, err := s.habitRepo.ListCompletionDates(ctx, habitID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion dates: %w", err)
	}
	return dates, nil
}

// MonthLogs は指定月の全アクティブ習慣の完了日をhabitID毎にまとめて返す。
// カレンダー表示用。完了のない習慣はマップに含まれない。
func (s *Service) MonthLogs(ctx context.Context, userID string, year, month int) (map[string][]time.Time, error) {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	completions, err := s.habitRepo.ListCompletionsForUser(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}

	logs := make(map[string][]time.Time, len(completions))
	for habitID, dates := range completions {
		for _, d := range dates {
			if day := model.Date(d); day.Before(monthEnd) {
				logs[habitID] = append(logs[habitID], day)
			}
		}
	}
	return logs, nil
}
