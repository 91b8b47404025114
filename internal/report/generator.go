// Package report は週次・月次レポートのデータ組み立てとHTML描画を提供する。
//
// 週次は直近7日間、月次は直近30日間のローリング期間を対象にする
// （暦月ベースの/api/analytics/monthlyとは意図的に異なる）。
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/repository"
)

// 上位何件までをレポートに載せるか。
const topEntries = 5

// PeriodDay は日次内訳チャートの1本分を表す。
type PeriodDay struct {
	Label       string `json:"date"`
	Completions int    `json:"completions"`
	Percentage  int    `json:"percentage"`
}

// PeriodWeek は月次レポートの週次内訳チャートの1本分を表す。
type PeriodWeek struct {
	Week        string `json:"week"`
	Completions int    `json:"completions"`
	Percentage  int    `json:"percentage"`
}

// HabitBreakdown は習慣別の達成内訳を表す。
type HabitBreakdown struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Completions int    `json:"completions"`
	OutOf       int    `json:"out_of"`
}

// PeriodStats はレポート対象期間の基本統計を表す。
type PeriodStats struct {
	Period           model.ReportPeriod `json:"period"`
	StartDate        string             `json:"start_date"`
	EndDate          string             `json:"end_date"`
	Consistency      int                `json:"consistency"`
	TasksCompleted   int                `json:"tasks_completed"`
	TasksTotal       int                `json:"tasks_total"`
	HabitCompletions int                `json:"habit_completions"`
	TotalHabits      int                `json:"total_habits"`
	DailyStats       []PeriodDay        `json:"daily_stats,omitempty"`
	WeeklyStats      []PeriodWeek       `json:"weekly_stats,omitempty"`
	HabitsBreakdown  []HabitBreakdown   `json:"habits_breakdown"`
	BestDay          string             `json:"best_day,omitempty"`
}

// Report は1ユーザー分のレポート全体を表す。
type Report struct {
	User         *model.User
	Period       model.ReportPeriod
	Title        string
	Stats        *PeriodStats
	Productivity *analytics.ScoreSummary
	Strengths    []analytics.HabitStrength
	Correlations []analytics.Correlation
	Comparison   *analytics.Comparison
	Heatmap      *analytics.Heatmap
	GeneratedAt  time.Time
}

// Generator はレポートデータの組み立てを行う。
type Generator struct {
	analytics *analytics.Service
	userRepo  repository.UserRepository
	habitRepo repository.HabitRepository
	taskRepo  repository.TaskRepository
}

// NewGenerator はGeneratorを生成する。
func NewGenerator(
	analyticsService *analytics.Service,
	userRepo repository.UserRepository,
	habitRepo repository.HabitRepository,
	taskRepo repository.TaskRepository,
) *Generator {
	return &Generator{
		analytics: analyticsService,
		userRepo:  userRepo,
		habitRepo: habitRepo,
		taskRepo:  taskRepo,
	}
}

// periodDays は期間種別のローリング日数を返す。
func periodDays(period model.ReportPeriod) int {
	if period == model.ReportPeriodWeekly {
		return 7
	}
	return 30
}

// PeriodStats は対象期間の基本統計を組み立てる。
// 一貫性 = 総完了数 / (習慣数 * 日数) * 100（100でクリップ）。
func (g *Generator) PeriodStats(ctx context.Context, userID string, period model.ReportPeriod, today time.Time) (*PeriodStats, error) {
	days := periodDays(period)
	end := model.Date(today)
	start := end.AddDate(0, 0, -days)

	habitCompletions, err := g.habitRepo.CountCompletionsInRange(ctx, userID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to count habit completions: %w", err)
	}

	habits, err := g.habitRepo.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	totalHabits := len(habits)

	consistency := 0
	if expected := totalHabits * days; expected > 0 {
		consistency = int(float64(habitCompletions)/float64(expected)*100 + 0.5)
		if consistency > 100 {
			consistency = 100
		}
	}

	tasks, err := g.taskRepo.ListByUser(ctx, userID, true, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasksTotal := 0
	tasksCompleted := 0
	for _, t := range tasks {
		if t.CreatedAt.Before(start) {
			continue
		}
		tasksTotal++
		if t.IsCompleted {
			tasksCompleted++
		}
	}

	counts, err := g.habitRepo.CountCompletedPerDate(ctx, userID, start.AddDate(0, 0, 1), end)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions per date: %w", err)
	}

	stats := &PeriodStats{
		Period:           period,
		StartDate:        start.Format("Jan 02"),
		EndDate:          end.Format("Jan 02, 2006"),
		Consistency:      consistency,
		TasksCompleted:   tasksCompleted,
		TasksTotal:       tasksTotal,
		HabitCompletions: habitCompletions,
		TotalHabits:      totalHabits,
	}

	if period == model.ReportPeriodWeekly {
		bestPct := -1
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i+1)
			count := counts[day]
			pct := 0
			if totalHabits > 0 {
				pct = int(float64(count)/float64(totalHabits)*100 + 0.5)
			}
			stats.DailyStats = append(stats.DailyStats, PeriodDay{
				Label:       day.Format("Mon"),
				Completions: count,
				Percentage:  pct,
			})
			if pct > bestPct {
				bestPct = pct
				stats.BestDay = day.Format("Mon")
			}
		}
	} else {
		for week := 0; week < 4; week++ {
			weekStart := start.AddDate(0, 0, week*7)
			count := 0
			for i := 0; i < 7; i++ {
				count += counts[weekStart.AddDate(0, 0, i+1)]
			}
			pct := 0
			if expected := totalHabits * 7; expected > 0 {
				pct = int(float64(count)/float64(expected)*100 + 0.5)
			}
			stats.WeeklyStats = append(stats.WeeklyStats, PeriodWeek{
				Week:        fmt.Sprintf("Week %d", week+1),
				Completions: count,
				Percentage:  pct,
			})
		}
	}

	for _, h := range habits {
		dates, err := g.habitRepo.ListCompletionDates(ctx, h.ID, start)
		if err != nil {
			return nil, fmt.Errorf("failed to list completion dates: %w", err)
		}
		stats.HabitsBreakdown = append(stats.HabitsBreakdown, HabitBreakdown{
			Name:        h.Name,
			Color:       h.Color,
			Completions: len(dates),
			OutOf:       days,
		})
	}

	return stats, nil
}

// Build はユーザーのレポート全体を組み立てる。
// 高度な分析（生産性・強度・相関・比較・ヒートマップ）のいずれかが
// 失敗してもレポート自体は生成する（該当セクションが空になるだけ）。
func (g *Generator) Build(ctx context.Context, userID string, period model.ReportPeriod, today time.Time) (*Report, error) {
	if !period.Valid() {
		return nil, model.NewInvalidPeriodError(string(period))
	}

	user, err := g.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	stats, err := g.PeriodStats(ctx, userID, period, today)
	if err != nil {
		return nil, fmt.Errorf("failed to build period stats: %w", err)
	}

	days := periodDays(period)
	report := &Report{
		User:        user,
		Period:      period,
		Stats:       stats,
		GeneratedAt: time.Now(),
	}
	if period == model.ReportPeriodWeekly {
		report.Title = "Weekly Progress Report"
	} else {
		report.Title = "Monthly Progress Report"
	}

	// 高度な分析の失敗はセクションの欠落として扱い、レポート生成は続行する
	start := model.Date(today).AddDate(0, 0, -days)
	if productivity, err := g.analytics.ProductivityScores(ctx, userID, start, today); err == nil {
		report.Productivity = productivity
	} else {
		slog.Warn("failed to compute productivity scores", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	if strengths, err := g.analytics.HabitStrengths(ctx, userID, today); err == nil {
		if len(strengths) > topEntries {
			strengths = strengths[:topEntries]
		}
		report.Strengths = strengths
	} else {
		slog.Warn("failed to compute habit strengths", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	if correlations, err := g.analytics.GetCorrelations(ctx, userID, today, days, true); err == nil {
		top := correlations.Correlations
		if len(top) > topEntries {
			top = top[:topEntries]
		}
		report.Correlations = top
	} else {
		slog.Warn("failed to compute correlations", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	if comparison, err := g.analytics.CompareWithPrevious(ctx, userID, today, days); err == nil {
		report.Comparison = comparison
	} else {
		slog.Warn("failed to compute period comparison", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	if period == model.ReportPeriodMonthly {
		if heatmap, err := g.analytics.RangeHeatmap(ctx, userID, today, 30); err == nil {
			report.Heatmap = heatmap
		} else {
			slog.Warn("failed to compute heatmap", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}

	return report, nil
}
