package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"

	"courier-driver-agent/internal/auth"
	"courier-driver-agent/internal/config"
	"courier-driver-agent/internal/lifecycle"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/realtime"
	"courier-driver-agent/internal/service/driver"
)

// MustRun starts the agent using the provided DI container
func MustRun(container *dig.Container) {
	if err := run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

func run(container *dig.Container) error {
	return container.Invoke(func(
		ctx context.Context,
		cfg *config.Config,
		server *http.Server,
		tokens *auth.TokenProvider,
		life *lifecycle.Coordinator,
		coord *realtime.Coordinator,
		status *driver.Status,
		logger logx.Logger,
	) error {
		startServer(server, logger)
		startSession(ctx, cfg, tokens, life, status, logger)
		watchAppState(ctx, life, logger)

		<-ctx.Done()
		logger.Info("shutting down courier agent")

		coord.Stop()
		gracefulShutdown(server, logger, 15*time.Second)
		if err := logger.Sync(); err != nil {
			log.Printf("logger sync error: %v", err)
		}
		return nil
	})
}

func startServer(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("diagnostics listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()
}

// startSession logs the driver in when credentials are configured and
// brings the push channel up. Without credentials the agent idles until
// an interactive login.
func startSession(
	ctx context.Context,
	cfg *config.Config,
	tokens *auth.TokenProvider,
	life *lifecycle.Coordinator,
	status *driver.Status,
	logger logx.Logger,
) {
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		logger.Info("no driver credentials configured, starting logged out")
		return
	}
	if err := tokens.Login(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
		logger.Error("driver login failed", logx.Err(err))
		return
	}

	status.SetOnline(true)
	status.SetAvailable(true)
	status.SetOnDuty(true)
	life.OnAuthReady(ctx)
	logger.Info("driver session started", logx.String("username", cfg.Auth.Username))
}

// watchAppState maps SIGUSR1/SIGUSR2 to background/foreground, the
// desktop analogue of the mobile app-state transitions.
func watchAppState(ctx context.Context, life *lifecycle.Coordinator, logger logx.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				foreground := sig == syscall.SIGUSR2
				logger.Info("app state change",
					logx.String("signal", sig.String()),
					logx.Bool("foreground", foreground),
				)
				life.OnAppStateChanged(ctx, foreground)
			}
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown", logx.Err(err))
	}
}
