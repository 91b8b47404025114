package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lifesync/internal/metrics"
	"github.com/hitoshi/lifesync/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 習慣・タスク
	HabitService HabitServiceInterface
	TaskService  TaskServiceInterface

	// 分析
	AnalyticsService AnalyticsServiceInterface

	// レポート
	ReportGenerator ReportGeneratorInterface
	ReportSender    ReportSenderInterface
	BatchTrigger    BatchTrigger
	UserFinder      UserFinder

	// メトリクス。CollectorはnilでもよいがGathererは必須。
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → SecurityHeadersMiddleware → CORSMiddleware
//	→ MetricsMiddleware → SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/api/auth/*）、/health、/metrics、/api/csrf-tokenは
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効く横断ミドルウェアを最上位に適用
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	habitHandler := NewHabitHandler(deps.HabitService, deps.Collector)
	taskHandler := NewTaskHandler(deps.TaskService)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService, deps.HabitService, deps.TaskService)
	reportHandler := NewReportHandler(deps.ReportGenerator, deps.ReportSender, deps.BatchTrigger, deps.UserFinder)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（セッションCookieの発行・破棄を伴うため認証ミドルウェアの外）
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Put("/theme", authHandler.UpdateTheme)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 習慣管理
		r.Route("/api/habits", func(r chi.Router) {
			r.Get("/", habitHandler.List)
			r.Post("/", habitHandler.Create)

			// 固定パスは/{id}より先に定義する
			r.Get("/logs", habitHandler.Logs)
			r.Get("/status", habitHandler.Status)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", habitHandler.Get)
				r.Put("/", habitHandler.Update)
				r.Delete("/", habitHandler.Delete)
				r.Post("/toggle", habitHandler.Toggle)
			})
		})

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Patch("/complete", taskHandler.Complete)
			})
		})

		// 分析
		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/daily", analyticsHandler.Daily)
			r.Get("/weekly", analyticsHandler.Weekly)
			r.Get("/monthly", analyticsHandler.Monthly)
			r.Get("/streaks", analyticsHandler.Streaks)
			r.Get("/overview", analyticsHandler.Overview)
			r.Get("/heatmap", analyticsHandler.Heatmap)
			r.Get("/correlations", analyticsHandler.Correlations)
			r.Get("/dashboard-data", analyticsHandler.DashboardData)
		})

		// レポート
		r.Route("/api/reports", func(r chi.Router) {
			r.Get("/preview/{period}", reportHandler.Preview)
			r.Get("/stats/{period}", reportHandler.Stats)

			// POST /api/reports/send-now - 即時送信（送信専用レート制限を追加）
			r.With(deps.RateLimiter.ReportSendMiddleware()).Post("/send-now", reportHandler.SendNow)
			r.Post("/trigger-batch", reportHandler.TriggerBatch)
		})
	})

	return r
}
