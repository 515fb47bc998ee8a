package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/observability"
	"github.com/spec-kit/rental-session/internal/service"
	"github.com/spec-kit/rental-session/internal/session"
	"github.com/spec-kit/rental-session/internal/state"
	"github.com/spec-kit/rental-session/internal/toast"
)

func main() {
	email := flag.String("email", "", "sign in with this email when no stored session exists")
	password := flag.String("password", "", "password for -email")
	limit := flag.Int("limit", 10, "notifications to fetch")
	logout := flag.Bool("logout", false, "sign out before exiting")
	flag.Parse()

	if err := run(*email, *password, *limit, *logout); err != nil {
		log.Fatalf("session-agent: %v", err)
	}
}

func run(email, password string, limit int, logoutOnExit bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	displayAppname(cfg.App.Name)

	metrics := observability.NewMetrics()
	var (
		toastMu sync.Mutex
		shown   = map[string]struct{}{}
	)
	sess, cleanup, err := session.Build(cfg, logger, metrics, toast.WithOnChange(func(list []toast.Toast) {
		toastMu.Lock()
		defer toastMu.Unlock()
		for _, t := range list {
			if _, ok := shown[t.ID]; ok {
				continue
			}
			shown[t.ID] = struct{}{}
			logger.Info("toast", zap.String("type", string(t.Type)), zap.String("title", t.Title), zap.String("message", t.Message))
		}
	}))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := sess.Store()
	store.Dispatcher().Subscribe(events.EventNotificationsChanged, func(_ context.Context, e events.Event) error {
		if n, ok := e.Payload.(state.NotificationState); ok && !n.IsLoading {
			logger.Info("notifications", zap.Int("count", len(n.Notifications)), zap.Int("unread", n.UnreadCount))
		}
		return nil
	})
	store.Dispatcher().Subscribe(events.EventSocketChanged, func(_ context.Context, e events.Event) error {
		if s, ok := e.Payload.(state.SocketState); ok {
			logger.Info("socket", zap.Bool("connected", s.IsConnected), zap.String("error", s.ConnectionError))
		}
		return nil
	})

	sess.Bootstrap(ctx)
	if !store.IsAuthenticated() && email != "" {
		if err := sess.Login(ctx, domain.Credentials{Email: email, Password: password}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}
	if !store.IsAuthenticated() {
		return errors.New("no session: pass -email and -password")
	}

	user := store.State().Auth.User
	logger.Info("signed in", zap.Int64("user_id", user.AccountID()), zap.String("email", user.AccountEmail()),
		zap.Bool("provisional", user.Provisional()))

	if err := store.FetchNotifications(ctx, service.ListParams{Page: 1, Limit: limit}); err != nil {
		logger.Warn("fetch notifications", zap.Error(err))
	}
	if err := store.FetchPreferences(ctx, user.AccountID()); err != nil {
		logger.Warn("fetch preferences", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("stopping")

	if logoutOnExit {
		_ = sess.Logout(context.Background())
	}
	logger.Info("socket events", zap.Any("counts", metrics.Snapshot().SocketEvents))
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
