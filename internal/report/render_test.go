package report

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/model"
)

func sampleWeeklyReport() *Report {
	return &Report{
		User:   &model.User{ID: "user-1", Username: "hitoshi"},
		Period: model.ReportPeriodWeekly,
		Title:  "Weekly Progress Report",
		Stats: &PeriodStats{
			Period:           model.ReportPeriodWeekly,
			StartDate:        "Mar 08",
			EndDate:          "Mar 15, 2024",
			Consistency:      75,
			TasksCompleted:   4,
			TasksTotal:       6,
			HabitCompletions: 12,
			TotalHabits:      2,
			DailyStats: []PeriodDay{
				{Label: "Sat", Completions: 2, Percentage: 100},
				{Label: "Sun", Completions: 1, Percentage: 50},
				{Label: "Mon", Completions: 0, Percentage: 0},
			},
			HabitsBreakdown: []HabitBreakdown{
				{Name: "読書", Completions: 6, OutOf: 7},
				{Name: "ランニング", Completions: 2, OutOf: 7},
			},
			BestDay: "Sat",
		},
		Productivity: &analytics.ScoreSummary{AverageScore: 72.5},
		Strengths: []analytics.HabitStrength{
			{HabitName: "読書", CurrentStreak: 6, BestStreak: 10, ConsistencyScore: 81},
			{HabitName: "ランニング", CurrentStreak: 0, BestStreak: 3, ConsistencyScore: 25},
		},
		Correlations: []analytics.Correlation{
			{Habit1: "読書", Habit2: "瞑想", Correlation: 0.75, DaysTogether: 6},
		},
		Comparison: &analytics.Comparison{
			Changes: analytics.PeriodChanges{Habits: 20, Tasks: -10},
		},
		GeneratedAt: time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC),
	}
}

func TestRenderHTMLWeekly(t *testing.T) {
	html, err := RenderHTML(sampleWeeklyReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Weekly Progress Report",
		"Mar 08",
		"Mar 15, 2024",
		"75%",           // 一貫性
		"読書",            // 習慣名がそのまま出る
		"Period Comparison",
		"Productivity Score",
		"Best day: <strong>Sat</strong>",
		"81/100",
		"Strong",
		"Weak",
		"Habit Correlations",
		"瞑想",
		"🚀 Great work this week!", // 一貫性70%以上
		"March 15, 2024 at 6:30 PM",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}

	// 週次にはヒートマップを載せない
	if strings.Contains(html, "Activity Heatmap") {
		t.Error("weekly report should not render the heatmap section")
	}
}

func TestRenderHTMLMonthlyHeatmap(t *testing.T) {
	r := sampleWeeklyReport()
	r.Period = model.ReportPeriodMonthly
	r.Title = "Monthly Progress Report"
	r.Stats.DailyStats = nil
	r.Stats.WeeklyStats = []PeriodWeek{
		{Week: "Week 1", Completions: 10, Percentage: 71},
		{Week: "Week 2", Completions: 4, Percentage: 29},
	}
	r.Heatmap = &analytics.Heatmap{
		TotalHabits: 2,
		Data: []analytics.HeatmapDay{
			{Date: "2024-03-01", Completed: 0, Total: 2, Percentage: 0, Level: 0},
			{Date: "2024-03-02", Completed: 2, Total: 2, Percentage: 100, Level: 4},
		},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Monthly Progress Report",
		"Activity Heatmap",
		"Week 1",
		"⬜", // レベル0
		"✅", // レベル4
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderHTMLMinimalReport(t *testing.T) {
	// 高度な分析が全滅してもレンダリングは成功する
	r := &Report{
		User:   &model.User{ID: "user-1", Username: "hitoshi"},
		Period: model.ReportPeriodWeekly,
		Title:  "Weekly Progress Report",
		Stats: &PeriodStats{
			StartDate: "Mar 08",
			EndDate:   "Mar 15, 2024",
		},
		GeneratedAt: time.Now(),
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "Period Comparison") {
		t.Error("comparison section should be omitted")
	}
	if !strings.Contains(html, "No habits tracked yet") {
		t.Error("expected empty breakdown placeholder")
	}
	if !strings.Contains(html, "💪 Every step counts!") {
		t.Error("expected low-consistency motivation message")
	}
}

func TestRenderHTMLEscapesUserContent(t *testing.T) {
	r := sampleWeeklyReport()
	r.Stats.HabitsBreakdown = []HabitBreakdown{
		{Name: "<script>alert(1)</script>", Completions: 1, OutOf: 7},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("habit name must be HTML-escaped")
	}
}
