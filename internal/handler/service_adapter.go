package handler

import (
	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/auth"
	"github.com/hitoshi/lifesync/internal/habit"
	"github.com/hitoshi/lifesync/internal/report"
	"github.com/hitoshi/lifesync/internal/repository"
	"github.com/hitoshi/lifesync/internal/task"
	reportworker "github.com/hitoshi/lifesync/internal/worker/report"
)

// サービス実装がハンドラーのインターフェースを満たすことをコンパイル時に検証する。
var (
	_ AuthServiceInterface      = (*auth.Service)(nil)
	_ HabitServiceInterface     = (*habit.Service)(nil)
	_ TaskServiceInterface      = (*task.Service)(nil)
	_ AnalyticsServiceInterface = (*analytics.Service)(nil)
	_ ReportGeneratorInterface  = (*report.Generator)(nil)
	_ ReportSenderInterface     = (*reportworker.Mailer)(nil)
	_ BatchTrigger              = (*reportworker.Scheduler)(nil)
	_ UserFinder                = repository.UserRepository(nil)
)
