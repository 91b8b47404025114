// Package report はレポートメールの定期配信ワーカーを提供する。
// ポーリングループで発火条件を判定し、発火時に配信対象ユーザー全員へ
// レポートを生成・送信するバッチを実行する。
package report

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/lifesync/internal/metrics"
	"github.com/hitoshi/lifesync/internal/model"
	reportgen "github.com/hitoshi/lifesync/internal/report"
	"github.com/hitoshi/lifesync/internal/repository"
)

// ReportSenderService は1ユーザーへのレポート配信の実行インターフェース。
type ReportSenderService interface {
	// SendPeriodic は指定ユーザーのレポートを生成して送信する。
	SendPeriodic(ctx context.Context, user *model.User, period model.ReportPeriod) error
}

// MailSender はレポートメールの送信を抽象化するインターフェース。
type MailSender interface {
	SendReport(ctx context.Context, user *model.User, r *reportgen.Report) error
}

// Mailer はレポートの生成と送信を束ねるReportSenderService実装。
type Mailer struct {
	generator *reportgen.Generator
	mail      MailSender
}

// NewMailer はMailerを生成する。
func NewMailer(generator *reportgen.Generator, mail MailSender) *Mailer {
	return &Mailer{generator: generator, mail: mail}
}

// SendPeriodic はレポートを組み立ててメール送信する。
func (m *Mailer) SendPeriodic(ctx context.Context, user *model.User, period model.ReportPeriod) error {
	r, err := m.generator.Build(ctx, user.ID, period, time.Now())
	if err != nil {
		return err
	}
	return m.mail.SendReport(ctx, user, r)
}

// Config はスケジューラの発火条件を保持する。
type Config struct {
	PollInterval  time.Duration
	WeeklyWeekday time.Weekday // 週次レポートの発火曜日
	WeeklyHour    int          // 週次レポートの発火時
	MonthlyDay    int          // 月次レポートの発火日
	MonthlyHour   int          // 月次レポートの発火時
}

// Scheduler はレポートバッチのスケジューリングと並列制御を行う。
// ポーリング間隔ごとに発火条件を評価し、同日中の再発火は抑止する。
type Scheduler struct {
	userRepo       repository.UserRepository
	sender         ReportSenderService
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	config         Config
	maxConcurrency int

	// テストから時刻を差し替えるためのフック
	now func() time.Time

	lastWeekly  time.Time
	lastMonthly time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// PollIntervalが0以下の場合はデフォルト値30秒を使用する。
func NewScheduler(
	userRepo repository.UserRepository,
	sender ReportSenderService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	config Config,
) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	return &Scheduler{
		userRepo:       userRepo,
		sender:         sender,
		collector:      collector,
		logger:         logger,
		config:         config,
		maxConcurrency: 4,
		now:            time.Now,
	}
}

// Start はポーリングループでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("レポートスケジューラを開始しました",
		slog.Duration("poll_interval", s.config.PollInterval),
		slog.Int("weekly_weekday", int(s.config.WeeklyWeekday)),
		slog.Int("weekly_hour", s.config.WeeklyHour),
		slog.Int("monthly_day", s.config.MonthlyDay),
		slog.Int("monthly_hour", s.config.MonthlyHour),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("レポートスケジューラを停止しました")
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// tick は現在時刻に対して発火条件を評価し、条件を満たすバッチを実行する。
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if shouldFireWeekly(now, s.lastWeekly, s.config.WeeklyWeekday, s.config.WeeklyHour) {
		s.lastWeekly = now
		s.RunBatch(ctx, model.ReportPeriodWeekly)
	}
	if shouldFireMonthly(now, s.lastMonthly, s.config.MonthlyDay, s.config.MonthlyHour) {
		s.lastMonthly = now
		s.RunBatch(ctx, model.ReportPeriodMonthly)
	}
}

// shouldFireWeekly は週次バッチを発火すべきかどうかを判定する。
// 指定曜日の指定時以降で、かつ同日中に未実行の場合に真を返す。
// 時刻は一致ではなく「以降」で判定する。指定時を過ぎてワーカーが
// 再起動した場合でも、その日のレポートを取りこぼさないため。
// sameDay判定により発火は1日1回に制限される。
func shouldFireWeekly(now, lastRun time.Time, weekday time.Weekday, hour int) bool {
	if now.Weekday() != weekday || now.Hour() < hour {
		return false
	}
	return !sameDay(now, lastRun)
}

// shouldFireMonthly は月次バッチを発火すべきかどうかを判定する。
// 指定日の指定時以降で、かつ同日中に未実行の場合に真を返す。
// 「以降」判定の理由はshouldFireWeeklyと同じ。
func shouldFireMonthly(now, lastRun time.Time, day, hour int) bool {
	if now.Day() != day || now.Hour() < hour {
		return false
	}
	return !sameDay(now, lastRun)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// RunBatch は配信対象ユーザー全員にレポートを生成・送信する。
// 個別ユーザーの失敗はログとメトリクスに記録し、バッチ全体は継続する。
func (s *Scheduler) RunBatch(ctx context.Context, period model.ReportPeriod) error {
	start := time.Now()

	users, err := s.userRepo.ListWithEmail(ctx)
	if err != nil {
		s.logger.Error("配信対象ユーザーの取得に失敗しました",
			slog.String("period", string(period)),
			slog.String("error", err.Error()),
		)
		return err
	}

	if len(users) == 0 {
		s.logger.Info("配信対象のユーザーはいません", slog.String("period", string(period)))
		return nil
	}

	s.logger.Info("レポートバッチを開始します",
		slog.String("period", string(period)),
		slog.Int("user_count", len(users)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var sent, failed atomic.Int64

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u *model.User) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.sender.SendPeriodic(ctx, u, period); err != nil {
				failed.Add(1)
				s.collector.RecordReportSendFailure(string(period), "send")
				s.logger.Error("レポート送信に失敗しました",
					slog.String("user_id", u.ID),
					slog.String("period", string(period)),
					slog.String("error", err.Error()),
				)
				return
			}
			sent.Add(1)
			s.collector.RecordReportSendSuccess(string(period))
		}(user)
	}

	wg.Wait()

	duration := time.Since(start)
	s.collector.RecordBatchDuration(string(period), duration)
	s.logger.Info("レポートバッチが完了しました",
		slog.String("period", string(period)),
		slog.Int64("sent", sent.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// TriggerNow は指定期間のバッチを非同期で1回実行する。
// 管理用エンドポイントからの手動トリガーに使用する。
func (s *Scheduler) TriggerNow(period model.ReportPeriod) error {
	if !period.Valid() {
		return model.NewInvalidPeriodError(string(period))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		_ = s.RunBatch(ctx, period)
	}()

	return nil
}
