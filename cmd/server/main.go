package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/pflag"

	"github.com/oleksShevch/websockets-chat/internal/auth"
	"github.com/oleksShevch/websockets-chat/internal/metrics"
	"github.com/oleksShevch/websockets-chat/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var e Env
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	f := newFlags(e)
	if err := f.set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logs.GetLoggerFromString(f.logLevel)

	cfg, err := resolveConfig(e, f)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	users, closeUsers, err := auth.OpenUserStore(f.usersDB)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing users database")
		_ = closeUsers()
	}()

	srv := server.New(cfg, server.Deps{
		Sessions: auth.NewSessionStore(),
		Users:    users,
		Metrics:  metrics.New(),
		Log:      log,
	})
	cfg = srv.Config()
	httpServer := server.CreateServer(cfg.Addr, srv.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(httpServer, log)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	}

	httpErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	hubErr := srv.Hub().Shutdown(cfg.ShutdownTimeout)
	if err := errors.Join(httpErr, hubErr); err != nil {
		return err
	}

	log.Info("server stopped cleanly")
	return nil
}
