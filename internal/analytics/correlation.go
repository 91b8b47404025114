package analytics

import (
	"sort"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// Correlation は2つの習慣の完了日の重なり（Jaccard係数）を表す。
// 統計的な相関係数ではなく、完了日集合の |共通| / |和| を指すドメイン用語。
type Correlation struct {
	Habit1       string  `json:"habit1"`
	Habit1ID     string  `json:"habit1_id"`
	Habit2       string  `json:"habit2"`
	Habit2ID     string  `json:"habit2_id"`
	Correlation  float64 `json:"correlation"`
	DaysTogether int     `json:"days_together"`
}

// 有意性フィルタの閾値。疎なデータからのノイズを除くため、
// 相関0.3以上かつ共通完了3日以上のペアのみを報告対象にする。
const (
	significantCorrelation = 0.3
	significantDaysBoth    = 3
)

// CalcCorrelations は全習慣ペアの相関を計算し、相関値の降順で返す。
// significantOnly=trueの場合は有意性フィルタを適用する。
// 2つの完了日集合が両方空のペアは相関0になる（0除算は発生しない）。
// 同値ペアの順序は入力の反復順に従う（安定ソート）。
func CalcCorrelations(habits []*model.Habit, completions map[string][]time.Time, significantOnly bool) []Correlation {
	sets := make(map[string]map[time.Time]bool, len(habits))
	for _, h := range habits {
		set := make(map[time.Time]bool)
		for _, d := range completions[h.ID] {
			set[model.Date(d)] = true
		}
		sets[h.ID] = set
	}

	correlations := []Correlation{}
	for i := 0; i < len(habits); i++ {
		for j := i + 1; j < len(habits); j++ {
			h1, h2 := habits[i], habits[j]
			both := 0
			for d := range sets[h1.ID] {
				if sets[h2.ID][d] {
					both++
				}
			}
			either := len(sets[h1.ID]) + len(sets[h2.ID]) - both

			value := 0.0
			if either > 0 {
				value = float64(both) / float64(either)
			}

			if significantOnly && (value < significantCorrelation || both < significantDaysBoth) {
				continue
			}

			correlations = append(correlations, Correlation{
				Habit1:       h1.Name,
				Habit1ID:     h1.ID,
				Habit2:       h2.Name,
				Habit2ID:     h2.ID,
				Correlation:  value,
				DaysTogether: both,
			})
		}
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].Correlation > correlations[j].Correlation
	})
	return correlations
}
