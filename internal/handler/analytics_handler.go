package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/model"
)

// 相関分析のデフォルト対象期間（日数）。
const defaultCorrelationDays = 30

// AnalyticsServiceInterface は分析ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	// Daily は指定日の完了統計を返す。
	Daily(ctx context.Context, userID string, date time.Time) (*analytics.DailyStats, error)
	// Weekly は指定日を含む週（月曜始まり）の統計を返す。
	Weekly(ctx context.Context, userID string, date time.Time) (*analytics.WeeklyStats, error)
	// Monthly は指定の暦月の統計を返す。
	Monthly(ctx context.Context, userID string, year, month int) (*analytics.MonthlyStats, error)
	// Streaks は全アクティブ習慣のストリークを返す。
	Streaks(ctx context.Context, userID string, today time.Time) (*analytics.StreaksResult, error)
	// GetOverview は当日の完了状況サマリーを返す。
	GetOverview(ctx context.Context, userID string, today time.Time) (*analytics.Overview, error)
	// YearHeatmap は指定年の全日分のヒートマップデータを返す。
	YearHeatmap(ctx context.Context, userID string, year int) (*analytics.Heatmap, error)
	// GetCorrelations は習慣ペアの相関分析結果を返す。
	GetCorrelations(ctx context.Context, userID string, today time.Time, days int, significantOnly bool) (*analytics.CorrelationsResult, error)
}

// AnalyticsHandler は分析系エンドポイントのHTTPハンドラー。
// dashboard-dataのために習慣・タスクのサービスにも依存する。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
	habits  HabitServiceInterface
	tasks   TaskServiceInterface
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface, habits HabitServiceInterface, tasks TaskServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		habits:  habits,
		tasks:   tasks,
	}
}

// Daily は指定日の完了統計を返す。
// GET /api/analytics/daily?date=2024-03-15
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	date, ok := queryDate(w, r, "date", time.Now().UTC())
	if !ok {
		return
	}

	stats, err := h.service.Daily(r.Context(), userID, date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    stats.Date,
		"habits":  stats.Habits,
		"tasks":   stats.Tasks,
	})
}

// Weekly は指定日を含む週の統計を返す。
// GET /api/analytics/weekly?date=2024-03-15
func (h *AnalyticsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	date, ok := queryDate(w, r, "date", time.Now().UTC())
	if !ok {
		return
	}

	stats, err := h.service.Weekly(r.Context(), userID, date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"week_start":        stats.WeekStart,
		"week_end":          stats.WeekEnd,
		"total_habits":      stats.TotalHabits,
		"daily_stats":       stats.DailyStats,
		"weekly_total":      stats.WeeklyTotal,
		"weekly_percentage": stats.WeeklyPercentage,
	})
}

// Monthly は指定の暦月の統計を返す。
// GET /api/analytics/monthly?year=2024&month=3
func (h *AnalyticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	now := time.Now().UTC()
	year, ok := queryInt(w, r, "year", now.Year(), 1, 9999)
	if !ok {
		return
	}
	month, ok := queryInt(w, r, "month", int(now.Month()), 1, 12)
	if !ok {
		return
	}

	stats, err := h.service.Monthly(r.Context(), userID, year, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"year":               stats.Year,
		"month":              stats.Month,
		"total_habits":       stats.TotalHabits,
		"days_in_month":      stats.DaysInMonth,
		"daily_data":         stats.DailyData,
		"monthly_total":      stats.MonthlyTotal,
		"monthly_percentage": stats.MonthlyPercentage,
	})
}

// Streaks は全アクティブ習慣のストリークを返す。
// GET /api/analytics/streaks
func (h *AnalyticsHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	result, err := h.service.Streaks(r.Context(), userID, time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"habits":  result.Habits,
		"totals":  result.Totals,
	})
}

// Overview は当日の完了状況サマリーを返す。
// GET /api/analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	overview, err := h.service.GetOverview(r.Context(), userID, time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    overview.Date,
		"habits":  overview.Habits,
		"tasks":   overview.Tasks,
		"overall": overview.Overall,
	})
}

// Heatmap は指定年の全日分のヒートマップデータを返す。
// GET /api/analytics/heatmap?year=2024
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	year, ok := queryInt(w, r, "year", time.Now().UTC().Year(), 1, 9999)
	if !ok {
		return
	}

	heatmap, err := h.service.YearHeatmap(r.Context(), userID, year)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"year":         heatmap.Year,
		"total_habits": heatmap.TotalHabits,
		"data":         heatmap.Data,
	})
}

// Correlations は習慣ペアの相関分析結果を返す。
// GET /api/analytics/correlations?days=30&significant_only=true
func (h *AnalyticsHandler) Correlations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	days, ok := queryInt(w, r, "days", defaultCorrelationDays, 1, 365)
	if !ok {
		return
	}
	significantOnly := r.URL.Query().Get("significant_only") == "true"

	result, err := h.service.GetCorrelations(r.Context(), userID, time.Now().UTC(), days, significantOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := map[string]any{
		"success":         true,
		"correlations":    result.Correlations,
		"analysis_period": result.AnalysisPeriod,
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	writeJSON(w, http.StatusOK, body)
}

// DashboardData は当日のサマリー・習慣の完了状態・タスクを1レスポンスで返す。
// GET /api/analytics/dashboard-data
func (h *AnalyticsHandler) DashboardData(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	today := time.Now().UTC()
	overview, err := h.service.GetOverview(r.Context(), userID, today)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statuses, err := h.habits.ListWithStatus(r.Context(), userID, today)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	habitItems := make([]habitStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		habitItems = append(habitItems, habitStatusResponse{
			habitResponse: toHabitResponse(&st.Habit),
			IsCompleted:   st.IsCompleted,
		})
	}

	tasks, err := h.tasks.List(r.Context(), userID, true, today)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	taskItems := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		taskItems = append(taskItems, toTaskResponse(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"date":     model.Date(today).Format(model.DateFormat),
		"overview": overview,
		"habits":   habitItems,
		"tasks":    taskItems,
	})
}
