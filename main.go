package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shengji/internal/config"
	"shengji/internal/dispatch"
	"shengji/internal/notify"
	"shengji/internal/server"
	"shengji/internal/session"
	"shengji/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "game server websocket url")
	flag.StringVar(&cfg.Room, "room", cfg.Room, "room to join")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "player name")
	flag.StringVar(&cfg.ViewAddr, "view", cfg.ViewAddr, "address of the local view server (empty to disable)")
	flag.BoolVar(&cfg.Bell, "bell", cfg.Bell, "ring the terminal bell when the server asks")
	flag.BoolVar(&cfg.LogDev, "dev", cfg.LogDev, "human-readable debug logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		config.Exitf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("client stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	notifier := notify.Nop()
	if cfg.Bell {
		notifier = notify.NewBell(os.Stdout)
	}
	engine := dispatch.New(
		dispatch.WithLogger(logger.Named("dispatch")),
		dispatch.WithNotifier(notifier),
		dispatch.WithInterval(cfg.BeepInterval),
		dispatch.WithCapacity(cfg.HistoryCapacity),
	)
	store := state.NewStore(state.New(cfg.Name))

	sess, err := session.Dial(ctx, cfg.ServerURL, cfg.Room, engine, store, logger.Named("session"))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := sess.Run(ctx)
		if err == nil {
			// The server hung up; stop the view server too.
			err = session.ErrClosed
		}
		return err
	})
	if cfg.ViewAddr != "" {
		handlers := server.NewHandlers(store, sess, logger.Named("view"))
		g.Go(func() error { return server.New(cfg.ViewAddr, handlers).Start(ctx) })
	}

	err = g.Wait()
	if errors.Is(err, session.ErrClosed) {
		logger.Info("session ended", zap.String("session_id", sess.ID()))
		return nil
	}
	return err
}
