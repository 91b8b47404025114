// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateTheme はテーマ設定を更新する。
	UpdateTheme(ctx context.Context, id, theme string) error

	// ListWithEmail はメールアドレスが登録されている全ユーザーを返す。
	// バッチレポートの配信対象一覧として使用する。
	ListWithEmail(ctx context.Context) ([]*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// HabitRepository は習慣と完了ログの永続化インターフェース。
// すべての取得系は所有ユーザーによるスコープを前提とする。
type HabitRepository interface {
	// FindByID は指定IDの習慣を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Habit, error)

	// ListByUser はユーザーの習慣一覧をsort_order、id順で返す。
	// activeOnly=trueの場合はis_active=TRUEの習慣のみを返す。
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error)

	// Create は習慣を作成する。
	Create(ctx context.Context, habit *model.Habit) error

	// Update は習慣の属性を更新する。
	Update(ctx context.Context, habit *model.Habit) error

	// Delete は習慣と関連ログを削除する（ログはCASCADE削除）。
	Delete(ctx context.Context, id string) error

	// ToggleCompletion は指定日の完了ログをトグルする。
	// 存在する場合は削除、存在しない場合は挿入を1トランザクションで行い、
	// トグル後の完了状態を返す。(habit_id, completed_date)のUNIQUE制約が
	// 並行トグル時の二重挿入を防ぐ。
	ToggleCompletion(ctx context.Context, habitID string, date time.Time) (bool, error)

	// ListCompletionDates は習慣の完了日集合を返す。
	// sinceがゼロ値でない場合はsince以降の日付のみを返す。
	ListCompletionDates(ctx context.Context, habitID string, since time.Time) ([]time.Time, error)

	// ListCompletionsForUser はユーザーの全アクティブ習慣の完了日を一括で返す。
	// habitID -> 完了日リストのマップ。N+1クエリの回避用。
	ListCompletionsForUser(ctx context.Context, userID string, since time.Time) (map[string][]time.Time, error)

	// CountCompletedOnDate は指定日に完了したアクティブ習慣数を返す。
	CountCompletedOnDate(ctx context.Context, userID string, date time.Time) (int, error)

	// CountCompletedPerDate は期間内の日付ごとの完了アクティブ習慣数を返す。
	// 完了のない日はマップに含まれない。
	CountCompletedPerDate(ctx context.Context, userID string, from, to time.Time) (map[time.Time]int, error)

	// CountActiveByUser はユーザーのアクティブ習慣数を返す。
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// CompletionCount は習慣の完了ログ総数を返す。
	CompletionCount(ctx context.Context, habitID string) (int, error)

	// FirstCompletionDate は習慣の最初の完了日を返す。
	// ログが存在しない場合はゼロ値を返す。
	FirstCompletionDate(ctx context.Context, habitID string) (time.Time, error)

	// CountCompletionsInRange は期間[from, to)のユーザーの完了ログ総数を返す。
	// アクティブ・非アクティブを問わない（期間比較用）。
	CountCompletionsInRange(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListByUser はユーザーのタスク一覧を返す。
	// targetDateがゼロ値でない場合は due_date = targetDate OR due_date IS NULL のタスクに絞る。
	// includeCompleted=falseの場合は未完了タスクのみを返す。
	ListByUser(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクの属性を更新する。
	Update(ctx context.Context, task *model.Task) error

	// SetCompleted は完了フラグを更新する。
	// trueへの遷移でcompleted_atを設定し、falseへの遷移でクリアする。
	SetCompleted(ctx context.Context, id string, completed bool) error

	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id string) error

	// CountForDate は指定日のタスク総数と完了数を返す。
	// 対象は due_date = date、または due_date IS NULL かつ作成日 = date のタスク。
	CountForDate(ctx context.Context, userID string, date time.Time) (total, completed int, err error)

	// CountCompletedInRange は期間[from, to)に作成され完了済みのタスク数を返す（期間比較用）。
	CountCompletedInRange(ctx context.Context, userID string, from, to time.Time) (int, error)
}
