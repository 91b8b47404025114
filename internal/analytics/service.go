package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/repository"
)

// Service は統計計算に必要なデータ取得と純粋計算の仲介を行う。
type Service struct {
	habitRepo repository.HabitRepository
	taskRepo  repository.TaskRepository
}

// NewService はServiceを生成する。
func NewService(habitRepo repository.HabitRepository, taskRepo repository.TaskRepository) *Service {
	return &Service{
		habitRepo: habitRepo,
		taskRepo:  taskRepo,
	}
}

// Ratio は総数・完了数・完了率の組を表す。
type Ratio struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

func newRatio(completed, total int) Ratio {
	return Ratio{
		Total:      total,
		Completed:  completed,
		Percentage: round1(percentage(completed, total)),
	}
}

// DailyStats は1日分の習慣・タスク統計を表す。
type DailyStats struct {
	Date   string `json:"date"`
	Habits Ratio  `json:"habits"`
	Tasks  Ratio  `json:"tasks"`
}

// Daily は指定日の習慣・タスク完了統計を返す。
func (s *Service) Daily(ctx context.Context, userID string, date time.Time) (*DailyStats, error) {
	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}
	completedHabits, err := s.habitRepo.CountCompletedOnDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed habits: %w", err)
	}
	totalTasks, completedTasks, err := s.taskRepo.CountForDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &DailyStats{
		Date:   model.Date(date).Format(model.DateFormat),
		Habits: newRatio(completedHabits, totalHabits),
		Tasks:  newRatio(completedTasks, totalTasks),
	}, nil
}

// WeekdayStat は週間統計の1日分を表す。
type WeekdayStat struct {
	Date      string `json:"date"`
	DayName   string `json:"day_name"`
	Completed int    `json:"completed"`
}

// WeeklyStats は月曜始まりの1週間分の統計を表す。
type WeeklyStats struct {
	WeekStart        string        `json:"week_start"`
	WeekEnd          string        `json:"week_end"`
	TotalHabits      int           `json:"total_habits"`
	DailyStats       []WeekdayStat `json:"daily_stats"`
	WeeklyTotal      int           `json:"weekly_total"`
	WeeklyPercentage float64       `json:"weekly_percentage"`
}

// Weekly は指定日を含む週（月曜始まり・日曜終わり）の統計を返す。
// 週間完了率 = 総完了数 / (習慣数 * 7) * 100。
func (s *Service) Weekly(ctx context.Context, userID string, date time.Time) (*WeeklyStats, error) {
	day := model.Date(date)
	// time.WeekdayはSunday=0なので月曜始まりに補正する
	offset := (int(day.Weekday()) + 6) % 7
	weekStart := day.AddDate(0, 0, -offset)
	weekEnd := weekStart.AddDate(0, 0, 6)

	counts, err := s.habitRepo.CountCompletedPerDate(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions per date: %w", err)
	}
	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}

	dailyStats := make([]WeekdayStat, 0, 7)
	weeklyTotal := 0
	for i := 0; i < 7; i++ {
		d := weekStart.AddDate(0, 0, i)
		completed := counts[d]
		weeklyTotal += completed
		dailyStats = append(dailyStats, WeekdayStat{
			Date:      d.Format(model.DateFormat),
			DayName:   d.Format("Mon"),
			Completed: completed,
		})
	}

	return &WeeklyStats{
		WeekStart:        weekStart.Format(model.DateFormat),
		WeekEnd:          weekEnd.Format(model.DateFormat),
		TotalHabits:      totalHabits,
		DailyStats:       dailyStats,
		WeeklyTotal:      weeklyTotal,
		WeeklyPercentage: round1(percentage(weeklyTotal, totalHabits*7)),
	}, nil
}

// MonthlyDay は月間統計の1日分を表す。
type MonthlyDay struct {
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// MonthlyStats は暦月の統計を表す。
type MonthlyStats struct {
	Year              int                   `json:"year"`
	Month             int                   `json:"month"`
	TotalHabits       int                   `json:"total_habits"`
	DaysInMonth       int                   `json:"days_in_month"`
	DailyData         map[string]MonthlyDay `json:"daily_data"`
	MonthlyTotal      int                   `json:"monthly_total"`
	MonthlyPercentage float64               `json:"monthly_percentage"`
}

// Monthly は指定の暦月（year, month）の統計を返す。
// 月間完了率 = 総完了数 / (習慣数 * 月の日数) * 100。
// 完了のない日はDailyDataに含まれない。
func (s *Service) Monthly(ctx context.Context, userID string, year, month int) (*MonthlyStats, error) {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	daysInMonth := monthEnd.Day()

	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}
	counts, err := s.habitRepo.CountCompletedPerDate(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions per date: %w", err)
	}

	dailyData := make(map[string]MonthlyDay, len(counts))
	monthlyTotal := 0
	for d, completed := range counts {
		monthlyTotal += completed
		dailyData[d.Format(model.DateFormat)] = MonthlyDay{
			Completed:  completed,
			Percentage: round1(percentage(completed, totalHabits)),
		}
	}

	return &MonthlyStats{
		Year:              year,
		Month:             month,
		TotalHabits:       totalHabits,
		DaysInMonth:       daysInMonth,
		DailyData:         dailyData,
		MonthlyTotal:      monthlyTotal,
		MonthlyPercentage: round1(percentage(monthlyTotal, totalHabits*daysInMonth)),
	}, nil
}

// HabitStreaks は1つの習慣のストリーク情報を表す。
type HabitStreaks struct {
	HabitID       string `json:"habit_id"`
	HabitName     string `json:"habit_name"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// StreakTotals は全習慣のストリーク合計を表す。
type StreakTotals struct {
	TotalCurrentStreak int `json:"total_current_streak"`
	TotalBestStreak    int `json:"total_best_streak"`
}

// StreaksResult はストリーク一覧の応答を表す。
type StreaksResult struct {
	Habits []HabitStreaks `json:"habits"`
	Totals StreakTotals   `json:"totals"`
}

// Streaks は全アクティブ習慣のストリークを返す。
// 完了ログのない習慣もストリーク0として一覧に含める。
func (s *Service) Streaks(ctx context.Context, userID string, today time.Time) (*StreaksResult, error) {
	habits, err := s.habitRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	completions, err := s.habitRepo.ListCompletionsForUser(ctx, userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}

	result := &StreaksResult{Habits: make([]HabitStreaks, 0, len(habits))}
	for _, h := range habits {
		streaks := CalcStreaks(completions[h.ID], today)
		result.Habits = append(result.Habits, HabitStreaks{
			HabitID:       h.ID,
			HabitName:     h.Name,
			CurrentStreak: streaks.Current,
			BestStreak:    streaks.Best,
		})
		result.Totals.TotalCurrentStreak += streaks.Current
		result.Totals.TotalBestStreak += streaks.Best
	}
	return result, nil
}

// Overview はダッシュボード用の当日概況を表す。
type Overview struct {
	Date    string `json:"date"`
	Habits  Ratio  `json:"habits"`
	Tasks   Ratio  `json:"tasks"`
	Overall Ratio  `json:"overall"`
}

// GetOverview は当日の習慣・タスク・全体の完了状況を返す。
// タスクは期日が当日または期日なしのものを対象にする。
func (s *Service) GetOverview(ctx context.Context, userID string, today time.Time) (*Overview, error) {
	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}
	completedHabits, err := s.habitRepo.CountCompletedOnDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed habits: %w", err)
	}

	tasks, err := s.taskRepo.ListByUser(ctx, userID, true, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	totalTasks := len(tasks)
	completedTasks := 0
	for _, t := range tasks {
		if t.IsCompleted {
			completedTasks++
		}
	}

	return &Overview{
		Date:    model.Date(today).Format(model.DateFormat),
		Habits:  newRatio(completedHabits, totalHabits),
		Tasks:   newRatio(completedTasks, totalTasks),
		Overall: newRatio(completedHabits+completedTasks, totalHabits+totalTasks),
	}, nil
}

// Heatmap はヒートマップ応答を表す。
type Heatmap struct {
	Year        int          `json:"year,omitempty"`
	TotalHabits int          `json:"total_habits"`
	Data        []HeatmapDay `json:"data"`
}

// YearHeatmap は指定年の全日分のヒートマップデータを返す。
func (s *Service) YearHeatmap(ctx context.Context, userID string, year int) (*Heatmap, error) {
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	return s.heatmap(ctx, userID, yearStart, yearEnd, year)
}

// RangeHeatmap はtodayまでの直近days日分のヒートマップデータを返す。
// 月次レポートの30日ヒートマップに使用する。
func (s *Service) RangeHeatmap(ctx context.Context, userID string, today time.Time, days int) (*Heatmap, error) {
	end := model.Date(today)
	start := end.AddDate(0, 0, -(days - 1))
	return s.heatmap(ctx, userID, start, end, 0)
}

func (s *Service) heatmap(ctx context.Context, userID string, from, to time.Time, year int) (*Heatmap, error) {
	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}
	counts, err := s.habitRepo.CountCompletedPerDate(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions per date: %w", err)
	}

	data := []HeatmapDay{}
	for d := model.Date(from); !d.After(model.Date(to)); d = d.AddDate(0, 0, 1) {
		data = append(data, NewHeatmapDay(d.Format(model.DateFormat), counts[d], totalHabits))
	}

	return &Heatmap{
		Year:        year,
		TotalHabits: totalHabits,
		Data:        data,
	}, nil
}

// CorrelationsResult は習慣相関の応答を表す。
type CorrelationsResult struct {
	Correlations   []Correlation `json:"correlations"`
	AnalysisPeriod int           `json:"analysis_period,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// GetCorrelations はtodayまでの直近days日を対象に全アクティブ習慣ペアの
// 相関を返す。習慣が2つ未満の場合はエラーではなく説明メッセージを返す。
func (s *Service) GetCorrelations(ctx context.Context, userID string, today time.Time, days int, significantOnly bool) (*CorrelationsResult, error) {
	habits, err := s.habitRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	if len(habits) < 2 {
		return &CorrelationsResult{
			Correlations: []Correlation{},
			Message:      "相関分析には2つ以上の習慣が必要です",
		}, nil
	}

	since := model.Date(today).AddDate(0, 0, -days)
	completions, err := s.habitRepo.ListCompletionsForUser(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}

	return &CorrelationsResult{
		Correlations:   CalcCorrelations(habits, completions, significantOnly),
		AnalysisPeriod: days,
	}, nil
}

// ProductivityScores は期間[from, to]の日次生産性スコアと集計を返す。
func (s *Service) ProductivityScores(ctx context.Context, userID string, from, to time.Time) (*ScoreSummary, error) {
	totalHabits, err := s.habitRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count habits: %w", err)
	}

	scores := []DayScore{}
	for d := model.Date(from); !d.After(model.Date(to)); d = d.AddDate(0, 0, 1) {
		completedHabits, err := s.habitRepo.CountCompletedOnDate(ctx, userID, d)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed habits: %w", err)
		}
		totalTasks, completedTasks, err := s.taskRepo.CountForDate(ctx, userID, d)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
		scores = append(scores, CalcDayScore(d.Format(model.DateFormat),
			completedHabits, totalHabits, completedTasks, totalTasks))
	}

	summary := SummarizeScores(scores)
	return &summary, nil
}

// HabitStrengths は完了ログを持つ全アクティブ習慣の強度を
// 一貫性スコアの降順で返す。ログのない習慣は対象外（0点扱いにしない）。
func (s *Service) HabitStrengths(ctx context.Context, userID string, today time.Time) ([]HabitStrength, error) {
	habits, err := s.habitRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	strengths := []HabitStrength{}
	for _, h := range habits {
		firstLog, err := s.habitRepo.FirstCompletionDate(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get first completion date: %w", err)
		}
		if firstLog.IsZero() {
			continue
		}
		count, err := s.habitRepo.CompletionCount(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count completions: %w", err)
		}
		dates, err := s.habitRepo.ListCompletionDates(ctx, h.ID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("failed to list completion dates: %w", err)
		}
		strengths = append(strengths, CalcStrength(h, firstLog, count, CalcStreaks(dates, today), today))
	}

	sort.SliceStable(strengths, func(i, j int) bool {
		return strengths[i].ConsistencyScore > strengths[j].ConsistencyScore
	})
	return strengths, nil
}

// PeriodCounts は比較期間ごとの完了数を表す。
type PeriodCounts struct {
	Habits int `json:"habits"`
	Tasks  int `json:"tasks"`
}

// PeriodChanges は前期間比の変化率（%）を表す。
type PeriodChanges struct {
	Habits int `json:"habits"`
	Tasks  int `json:"tasks"`
}

// Comparison は期間比較の結果を表す。
type Comparison struct {
	Current  PeriodCounts  `json:"current"`
	Previous PeriodCounts  `json:"previous"`
	Changes  PeriodChanges `json:"changes"`
}

// CompareWithPrevious は直近days日と、その直前の同じ長さの期間の
// 習慣完了数・タスク完了数を比較する。前期間が0の場合、変化率は0。
func (s *Service) CompareWithPrevious(ctx context.Context, userID string, today time.Time, days int) (*Comparison, error) {
	currentEnd := model.Date(today)
	currentStart := currentEnd.AddDate(0, 0, -days)
	previousStart := currentStart.AddDate(0, 0, -days)

	currentHabits, err := s.habitRepo.CountCompletionsInRange(ctx, userID, currentStart, currentEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count current completions: %w", err)
	}
	previousHabits, err := s.habitRepo.CountCompletionsInRange(ctx, userID, previousStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count previous completions: %w", err)
	}
	currentTasks, err := s.taskRepo.CountCompletedInRange(ctx, userID, currentStart, currentEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count current tasks: %w", err)
	}
	previousTasks, err := s.taskRepo.CountCompletedInRange(ctx, userID, previousStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count previous tasks: %w", err)
	}

	return &Comparison{
		Current:  PeriodCounts{Habits: currentHabits, Tasks: currentTasks},
		Previous: PeriodCounts{Habits: previousHabits, Tasks: previousTasks},
		Changes: PeriodChanges{
			Habits: percentChange(currentHabits, previousHabits),
			Tasks:  percentChange(currentTasks, previousTasks),
		},
	}, nil
}

// percentChange は前期間比の変化率を整数%で返す。前期間が0の場合は0。
func percentChange(current, previous int) int {
	if previous == 0 {
		return 0
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}
