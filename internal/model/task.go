// Package model はドメインモデルを定義する。
package model

import "time"

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

const (
	// TaskPriorityLow は低優先度。
	TaskPriorityLow TaskPriority = "low"
	// TaskPriorityMedium は中優先度（デフォルト）。
	TaskPriorityMedium TaskPriority = "medium"
	// TaskPriorityHigh は高優先度。
	TaskPriorityHigh TaskPriority = "high"
)

// Valid は既知の優先度かどうかを返す。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task はユーザーのタスクを表す。
// CompletedAtは完了フラグがtrueになった時に設定され、falseに戻すとクリアされる。
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	IsCompleted bool
	DueDate     *time.Time // カレンダー日付。未設定の場合はnil
	Priority    TaskPriority
	Category    string
	CreatedAt   time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// ReportPeriod はレポートの対象期間種別を表す。
type ReportPeriod string

const (
	// ReportPeriodWeekly は直近7日間の週次レポート。
	ReportPeriodWeekly ReportPeriod = "weekly"
	// ReportPeriodMonthly は直近30日間の月次レポート。
	ReportPeriodMonthly ReportPeriod = "monthly"
)

// Valid は既知のレポート期間かどうかを返す。
func (p ReportPeriod) Valid() bool {
	return p == ReportPeriodWeekly || p == ReportPeriodMonthly
}
