// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/lifesync/internal/analytics"
	"github.com/hitoshi/lifesync/internal/auth"
	"github.com/hitoshi/lifesync/internal/config"
	"github.com/hitoshi/lifesync/internal/database"
	"github.com/hitoshi/lifesync/internal/habit"
	"github.com/hitoshi/lifesync/internal/handler"
	"github.com/hitoshi/lifesync/internal/logger"
	"github.com/hitoshi/lifesync/internal/mail"
	"github.com/hitoshi/lifesync/internal/metrics"
	"github.com/hitoshi/lifesync/internal/middleware"
	"github.com/hitoshi/lifesync/internal/report"
	"github.com/hitoshi/lifesync/internal/repository"
	"github.com/hitoshi/lifesync/internal/security"
	"github.com/hitoshi/lifesync/internal/task"
	"github.com/hitoshi/lifesync/internal/worker/cleanup"
	reportworker "github.com/hitoshi/lifesync/internal/worker/report"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定で指定されたログレベルを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	habitRepo := repository.NewPostgresHabitRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)

	// 3. メール送信サービスの初期化（SMTP未設定の場合は無効化状態で動作）
	mailService, err := mail.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize mail service: %w", err)
	}
	var welcomeMailer auth.WelcomeMailer
	if mailService.Enabled() {
		welcomeMailer = mailService
	}

	// 4. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()
	authService := auth.NewService(
		userRepo, sessionRepo, welcomeMailer,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	habitService := habit.NewService(habitRepo, sanitizer)
	taskService := task.NewService(taskRepo, sanitizer)
	analyticsService := analytics.NewService(habitRepo, taskRepo)
	generator := report.NewGenerator(analyticsService, userRepo, habitRepo, taskRepo)
	reportMailer := reportworker.NewMailer(generator, mailService)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. バッチ手動起動用のスケジューラ
	// タイマーは起動せず、trigger-batchエンドポイントからの即時実行にのみ使う
	scheduler := reportworker.NewScheduler(
		userRepo, reportMailer, collector, slog.Default(),
		schedulerConfig(cfg),
	)

	// 7. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ReportSendRate = rate.Limit(float64(cfg.RateLimitReportSend) / 60.0)
	rateLimiterCfg.ReportSendBurst = cfg.RateLimitReportSend

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		HabitService:     habitService,
		TaskService:      taskService,
		AnalyticsService: analyticsService,

		ReportGenerator: generator,
		ReportSender:    reportMailer,
		BatchTrigger:    scheduler,
		UserFinder:      userRepo,

		Collector: collector,
		Gatherer:  registry,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、レポートスケジューラとセッションクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	habitRepo := repository.NewPostgresHabitRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)

	// 3. メール送信サービスの初期化
	mailService, err := mail.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize mail service: %w", err)
	}
	if !mailService.Enabled() {
		slog.Warn("smtp credentials not set, report delivery will fail until configured")
	}

	// 4. レポート生成・送信パイプラインの初期化
	analyticsService := analytics.NewService(habitRepo, taskRepo)
	generator := report.NewGenerator(analyticsService, userRepo, habitRepo, taskRepo)
	reportMailer := reportworker.NewMailer(generator, mailService)

	// 5. メトリクスとスケジューラの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	scheduler := reportworker.NewScheduler(
		userRepo, reportMailer, collector, slog.Default(),
		schedulerConfig(cfg),
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default())

	// 7. ヘルスチェックとメトリクス公開用の軽量HTTPサーバー
	// Dockerのhealthcheckサブコマンドとdistroless環境での死活監視に使う
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler(registry))

	opsServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server listen error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("poll_interval", cfg.SchedulerPollInterval),
		slog.String("weekly_fire", fmt.Sprintf("%s %02d:00", cfg.WeeklyReportWeekday, cfg.WeeklyReportHour)),
		slog.String("monthly_fire", fmt.Sprintf("day %d %02d:00", cfg.MonthlyReportDay, cfg.MonthlyReportHour)),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// レポートスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("ops server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// schedulerConfig はConfigからレポートスケジューラ設定を組み立てる。
func schedulerConfig(cfg *config.Config) reportworker.Config {
	return reportworker.Config{
		PollInterval:  cfg.SchedulerPollInterval,
		WeeklyWeekday: cfg.WeeklyReportWeekday,
		WeeklyHour:    cfg.WeeklyReportHour,
		MonthlyDay:    cfg.MonthlyReportDay,
		MonthlyHour:   cfg.MonthlyReportHour,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
