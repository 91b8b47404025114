package analytics

import "math"

// DayScore は1日分の生産性スコアを表す。
type DayScore struct {
	Date       string  `json:"date"`
	Score      float64 `json:"score"`
	HabitScore float64 `json:"habit_score"`
	TaskScore  float64 `json:"task_score"`
}

// ScoreSummary は期間全体の生産性スコア集計を表す。
type ScoreSummary struct {
	Scores       []DayScore `json:"scores"`
	AverageScore float64    `json:"average_score"`
	BestDay      *DayScore  `json:"best_day"`
	WorstDay     *DayScore  `json:"worst_day"`
}

// CalcDayScore は1日分の生産性スコアを計算する。
// score = habit_score * 0.6 + task_score * 0.4（習慣60%、タスク40%の加重）。
// 分母が0の項は0として扱う。各値は小数第1位に丸める。
func CalcDayScore(date string, habitCompleted, habitTotal, taskCompleted, taskTotal int) DayScore {
	habitScore := round1(percentage(habitCompleted, habitTotal))
	taskScore := round1(percentage(taskCompleted, taskTotal))
	return DayScore{
		Date:       date,
		Score:      round1(habitScore*0.6 + taskScore*0.4),
		HabitScore: habitScore,
		TaskScore:  taskScore,
	}
}

// SummarizeScores は日次スコア列から平均・最良日・最悪日を求める。
// 同点の場合は日付順で先に現れた日を採用する。スコアが空の場合、
// 平均は0、最良日・最悪日はnil。
func SummarizeScores(scores []DayScore) ScoreSummary {
	summary := ScoreSummary{Scores: scores}
	if len(scores) == 0 {
		return summary
	}

	sum := 0.0
	best := 0
	worst := 0
	for i, s := range scores {
		sum += s.Score
		if s.Score > scores[best].Score {
			best = i
		}
		if s.Score < scores[worst].Score {
			worst = i
		}
	}
	summary.AverageScore = round1(sum / float64(len(scores)))
	summary.BestDay = &scores[best]
	summary.WorstDay = &scores[worst]
	return summary
}

// percentage は completed/total*100 を返す。totalが0の場合は0。
func percentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// round1 は小数第1位への丸め。
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
