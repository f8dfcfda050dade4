package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"toolgate/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// startupPingTimeout bounds the dependency check before listening.
const startupPingTimeout = 5 * time.Second

func run(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	err := services.Ping(pingCtx)
	cancel()
	if err != nil {
		_ = services.Close()
		return err
	}

	l, err := services.Server.Listen()
	if err != nil {
		_ = services.Close()
		return err
	}
	return serve(ctx, services, l)
}

// serve runs the HTTP server on l until ctx is done.
func serve(ctx context.Context, services *Services, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Server.Serve(l)
	})

	g.Go(func() error {
		notify(daemon.SdNotifyReady)
		<-gctx.Done()

		logging.Info("Server", "Shutting down")
		notify(daemon.SdNotifyStopping)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := services.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if cerr := services.Close(); cerr != nil {
		logging.Warn("Server", "Cleanup failed: %v", cerr)
	}
	if err != nil {
		return err
	}
	logging.Info("Server", "Stopped")
	return nil
}

// notify reports state to systemd. Outside of a notify service it does
// nothing.
func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Debug("Server", "systemd notification %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug("Server", "Sent systemd notification %q", state)
	}
}
