package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/config"
	"github.com/giannaras12/dutybot2/internal/duty"
	"github.com/giannaras12/dutybot2/internal/store"
	"github.com/giannaras12/dutybot2/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	manager *duty.Manager
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting duty-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("reminder_min", a.cfg.ReminderMin),
		zap.Duration("reminder_max", a.cfg.ReminderMax),
		zap.Duration("ack_window", a.cfg.AckWindow),
		zap.Duration("max_duty_duration", a.cfg.MaxDutyDuration),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	notifier := telegram.NewNotifier(a.bot, a.log, a.cfg.LogChatID, a.cfg.AckWindow)
	a.manager = duty.NewManager(repo, notifier, duty.NewAdminSet(a.cfg.AdminIDs), a.log, duty.Config{
		ReminderMin:     a.cfg.ReminderMin,
		ReminderMax:     a.cfg.ReminderMax,
		MaxDutyDuration: a.cfg.MaxDutyDuration,
	})
	a.router = telegram.NewRouter(a.bot, a.log, a.manager, notifier)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			// Stop every reminder loop before closing the store they pay into.
			a.manager.Shutdown()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
