package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/report"
)

// ReportGeneratorInterface はレポートデータの組み立てインターフェース。
type ReportGeneratorInterface interface {
	// Build は対象期間のレポートを組み立てる。
	Build(ctx context.Context, userID string, period model.ReportPeriod, today time.Time) (*report.Report, error)
}

// ReportSenderInterface は1ユーザーへのレポート生成・送信インターフェース。
type ReportSenderInterface interface {
	// SendPeriodic はレポートを生成してメール送信する。
	SendPeriodic(ctx context.Context, user *model.User, period model.ReportPeriod) error
}

// BatchTrigger はバッチ送信の手動起動インターフェース。
type BatchTrigger interface {
	// TriggerNow は全対象ユーザーへのバッチ送信を非同期に開始する。
	TriggerNow(period model.ReportPeriod) error
}

// UserFinder は現在ユーザーの取得インターフェース。
type UserFinder interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ReportHandler はレポート関連のHTTPハンドラー。
type ReportHandler struct {
	generator ReportGeneratorInterface
	sender    ReportSenderInterface
	trigger   BatchTrigger
	users     UserFinder
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(generator ReportGeneratorInterface, sender ReportSenderInterface, trigger BatchTrigger, users UserFinder) *ReportHandler {
	return &ReportHandler{
		generator: generator,
		sender:    sender,
		trigger:   trigger,
		users:     users,
	}
}

// periodRequest はレポート送信リクエストのボディ。
type periodRequest struct {
	Period string `json:"period"`
}

// reportResponse はレポート統計のAPIレスポンス。
// メールテンプレートと同じデータをJSONで返す。ユーザー情報は含めない。
type reportResponse struct {
	Success      bool               `json:"success"`
	Period       model.ReportPeriod `json:"period"`
	Title        string             `json:"title"`
	Stats        any                `json:"stats"`
	Productivity any                `json:"productivity,omitempty"`
	Strengths    any                `json:"strengths,omitempty"`
	Correlations any                `json:"correlations,omitempty"`
	Comparison   any                `json:"comparison,omitempty"`
	Heatmap      any                `json:"heatmap,omitempty"`
	GeneratedAt  string             `json:"generated_at"`
}

// Preview は生成したレポートHTMLをそのまま返す。
// GET /api/reports/preview/{period}
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	period := model.ReportPeriod(chi.URLParam(r, "period"))
	built, err := h.generator.Build(r.Context(), userID, period, time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	html, err := report.RenderHTML(built)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// Stats はレポートの統計データをJSONで返す。
// GET /api/reports/stats/{period}
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	period := model.ReportPeriod(chi.URLParam(r, "period"))
	built, err := h.generator.Build(r.Context(), userID, period, time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := reportResponse{
		Success:     true,
		Period:      built.Period,
		Title:       built.Title,
		Stats:       built.Stats,
		GeneratedAt: built.GeneratedAt.Format(time.RFC3339),
	}
	if built.Productivity != nil {
		resp.Productivity = built.Productivity
	}
	if len(built.Strengths) > 0 {
		resp.Strengths = built.Strengths
	}
	if len(built.Correlations) > 0 {
		resp.Correlations = built.Correlations
	}
	if built.Comparison != nil {
		resp.Comparison = built.Comparison
	}
	if built.Heatmap != nil {
		resp.Heatmap = built.Heatmap
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendNow は現在のユーザーへレポートを即時送信する。
// POST /api/reports/send-now
func (h *ReportHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	period, ok := h.decodePeriod(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		handleServiceError(w, model.NewUserNotFoundError())
		return
	}

	if err := h.sender.SendPeriodic(r.Context(), user, period); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "レポートを送信しました。",
	})
}

// TriggerBatch は全対象ユーザーへのバッチ送信を非同期に開始する。
// POST /api/reports/trigger-batch
func (h *ReportHandler) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	period, ok := h.decodePeriod(w, r)
	if !ok {
		return
	}

	if err := h.trigger.TriggerNow(period); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "バッチ送信を開始しました。",
	})
}

// decodePeriod はボディから期間種別を取り出して検証する。
// 不正な場合はエラーレスポンスを書き込みfalseを返す。
func (h *ReportHandler) decodePeriod(w http.ResponseWriter, r *http.Request) (model.ReportPeriod, bool) {
	var req periodRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
			return "", false
		}
	}

	period := model.ReportPeriod(req.Period)
	if !period.Valid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPeriodError(req.Period))
		return "", false
	}
	return period, true
}
