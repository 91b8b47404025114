package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"math"

	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/model"
)

//go:embed template/report.html.tmpl
var reportTemplate string

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

// 表示用の色。メールクライアント互換のためインラインスタイルで使う。
const (
	colorGood = "#22c55e"
	colorWarn = "#f59e0b"
	colorBad  = "#ef4444"
	colorInfo = "#00d9ff"
)

type comparisonView struct {
	HabitsArrow string
	HabitsValue int
	HabitsColor string
	TasksArrow  string
	TasksValue  int
	TasksColor  string
	PeriodLabel string
}

type productivityView struct {
	Score float64
	Color string
	Trend string
}

type chartBar struct {
	Label      string
	Percentage int
	Height     int
	Color      string
}

type strengthView struct {
	Name    string
	Current int
	Best    int
	Score   int
	Color   string
	Badge   string
}

type breakdownView struct {
	Name        string
	Completions int
	OutOf       int
	Rate        int
	Color       string
	Trend       string
	Arrow       string
}

type correlationView struct {
	Habit1     string
	Habit2     string
	Percentage int
	Color      string
}

type heatmapCell struct {
	Emoji   string
	Tooltip string
}

type reportView struct {
	Title            string
	PeriodLabel      string
	StartDate        string
	EndDate          string
	Consistency      int
	TasksCompleted   int
	HabitCompletions int
	Comparison       *comparisonView
	Productivity     *productivityView
	Chart            []chartBar
	BestDay          string
	Strengths        []strengthView
	Breakdown        []breakdownView
	Correlations     []correlationView
	HeatmapWeeks     [][]heatmapCell
	Motivation       string
	GeneratedAt      string
}

// RenderHTML はレポートをメール配信用のHTMLに描画する。
func RenderHTML(r *Report) (string, error) {
	view := buildView(r)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

func buildView(r *Report) *reportView {
	periodLabel := "week"
	if r.Period == model.ReportPeriodMonthly {
		periodLabel = "month"
	}

	view := &reportView{
		Title:            r.Title,
		PeriodLabel:      periodLabel,
		StartDate:        r.Stats.StartDate,
		EndDate:          r.Stats.EndDate,
		Consistency:      r.Stats.Consistency,
		TasksCompleted:   r.Stats.TasksCompleted,
		HabitCompletions: r.Stats.HabitCompletions,
		GeneratedAt:      r.GeneratedAt.Format("January 02, 2006 at 3:04 PM"),
	}

	if r.Stats.Consistency >= 70 {
		view.Motivation = fmt.Sprintf("🚀 Great work this %s! Keep the momentum going!", periodLabel)
	} else {
		view.Motivation = fmt.Sprintf("💪 Every step counts! Let's aim higher next %s!", periodLabel)
	}

	if r.Comparison != nil {
		view.Comparison = &comparisonView{
			HabitsArrow: arrow(r.Comparison.Changes.Habits),
			HabitsValue: abs(r.Comparison.Changes.Habits),
			HabitsColor: changeColor(r.Comparison.Changes.Habits),
			TasksArrow:  arrow(r.Comparison.Changes.Tasks),
			TasksValue:  abs(r.Comparison.Changes.Tasks),
			TasksColor:  changeColor(r.Comparison.Changes.Tasks),
			PeriodLabel: periodLabel,
		}
	}

	if r.Productivity != nil && r.Productivity.AverageScore > 0 {
		avg := r.Productivity.AverageScore
		view.Productivity = &productivityView{Score: avg}
		switch {
		case avg >= 70:
			view.Productivity.Color = colorGood
			view.Productivity.Trend = "Excellent!"
		case avg >= 50:
			view.Productivity.Color = colorWarn
			view.Productivity.Trend = "Good progress"
		default:
			view.Productivity.Color = colorBad
			view.Productivity.Trend = "Room for improvement"
		}
	}

	if r.Period == model.ReportPeriodWeekly {
		for _, day := range r.Stats.DailyStats {
			view.Chart = append(view.Chart, newChartBar(day.Label, day.Percentage))
		}
		view.BestDay = r.Stats.BestDay
	} else {
		for _, week := range r.Stats.WeeklyStats {
			view.Chart = append(view.Chart, newChartBar(week.Week, week.Percentage))
		}
	}

	for _, s := range r.Strengths {
		sv := strengthView{
			Name:    s.HabitName,
			Current: s.CurrentStreak,
			Best:    s.BestStreak,
			Score:   s.ConsistencyScore,
		}
		switch {
		case s.ConsistencyScore >= 70:
			sv.Color, sv.Badge = colorGood, "Strong"
		case s.ConsistencyScore >= 40:
			sv.Color, sv.Badge = colorWarn, "Moderate"
		default:
			sv.Color, sv.Badge = colorBad, "Weak"
		}
		view.Strengths = append(view.Strengths, sv)
	}

	for _, h := range r.Stats.HabitsBreakdown {
		rate := 0
		if h.OutOf > 0 {
			rate = int(math.Round(float64(h.Completions) / float64(h.OutOf) * 100))
		}
		bv := breakdownView{
			Name:        h.Name,
			Completions: h.Completions,
			OutOf:       h.OutOf,
			Rate:        rate,
		}
		switch {
		case rate >= 80:
			bv.Color, bv.Trend, bv.Arrow = colorGood, "Excellent", "⬆"
		case rate >= 50:
			bv.Color, bv.Trend, bv.Arrow = colorWarn, "Stable", "⬆"
		default:
			bv.Color, bv.Trend, bv.Arrow = colorBad, "Need Improvement", "⬇"
		}
		view.Breakdown = append(view.Breakdown, bv)
	}

	for _, c := range r.Correlations {
		pct := int(math.Round(c.Correlation * 100))
		cv := correlationView{Habit1: c.Habit1, Habit2: c.Habit2, Percentage: pct}
		switch {
		case pct >= 70:
			cv.Color = "#39d353"
		case pct >= 50:
			cv.Color = "#26a641"
		default:
			cv.Color = "#006d32"
		}
		view.Correlations = append(view.Correlations, cv)
	}

	if r.Heatmap != nil {
		view.HeatmapWeeks = buildHeatmapWeeks(r.Heatmap.Data)
	}

	return view
}

func newChartBar(label string, pct int) chartBar {
	bar := chartBar{Label: label, Percentage: pct, Height: pct}
	if bar.Height < 2 {
		bar.Height = 2
	}
	switch {
	case pct >= 80:
		bar.Color = colorGood
	case pct >= 50:
		bar.Color = colorInfo
	default:
		bar.Color = colorWarn
	}
	return bar
}

// buildHeatmapWeeks は日次データを7日ごとの行に分割し、
// メールクライアント互換の絵文字セルに変換する。
func buildHeatmapWeeks(days []analytics.HeatmapDay) [][]heatmapCell {
	var weeks [][]heatmapCell
	for start := 0; start < len(days); start += 7 {
		end := start + 7
		if end > len(days) {
			end = len(days)
		}
		var week []heatmapCell
		for _, day := range days[start:end] {
			var emoji string
			switch day.Level {
			case 0:
				emoji = "⬜"
			case 1:
				emoji = "🟩"
			case 2:
				emoji = "🟩🟩"
			case 3:
				emoji = "🟩🟩🟩"
			default:
				emoji = "✅"
			}
			week = append(week, heatmapCell{
				Emoji:   emoji,
				Tooltip: fmt.Sprintf("%d/%d habits (%d%%)", day.Completed, day.Total, day.Percentage),
			})
		}
		weeks = append(weeks, week)
	}
	return weeks
}

func arrow(change int) string {
	if change >= 0 {
		return "↑"
	}
	return "↓"
}

func changeColor(change int) string {
	if change >= 0 {
		return colorGood
	}
	return colorBad
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
