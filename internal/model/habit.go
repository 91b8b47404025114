// Package model はドメインモデルを定義する。
package model

import "time"

// DateFormat は完了日などのカレンダー日付の表記形式。
const DateFormat = "2006-01-02"

// Habit はユーザーが毎日トラッキングする習慣を表す。
// IsActive=falseの習慣はストリーク・集計・相関のすべての計算から除外される。
type Habit struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	Icon        string
	IsActive    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HabitLog は「この習慣をこの日に完了した」という事実を表す。
// (habit_id, completed_date) の組み合わせで一意。時刻情報は持たない。
type HabitLog struct {
	ID            string
	HabitID       string
	CompletedDate time.Time // カレンダー日付（UTC 00:00に正規化）
	CreatedAt     time.Time
}

// HabitStatus は特定日の習慣ごとの完了状態を表す。
// dashboard-dataやstatusエンドポイントで返される。
type HabitStatus struct {
	Habit
	IsCompleted bool
}

// Date はtをカレンダー日付（UTC 00:00）に正規化して返す。
// DATE型カラムと日付集合の比較はすべてこの正規化を前提とする。
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
