package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/danielpatrickdp/choice-experiment/internal/adapters/http"
	"github.com/danielpatrickdp/choice-experiment/internal/health"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

var (
	serveHTTPAddr         string
	serveGRPCAddr         string
	serveResubmitInterval time.Duration
	serveSessionRetention time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the experiment over HTTP with a gRPC health endpoint",
	Long: `Starts the JSON API for browser front-ends and the standard gRPC health
service. Both protocols are available; POST /sessions picks the configured one
unless the request names another. With --resubmit-interval, spooled batches are
drained in the background.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "", "HTTP listen address (env EXPERIMENT_HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "gRPC health listen address (env EXPERIMENT_GRPC_ADDR)")
	serveCmd.Flags().DurationVar(&serveResubmitInterval, "resubmit-interval", 0, "drain the spool this often (0 disables)")
	serveCmd.Flags().DurationVar(&serveSessionRetention, "session-retention", -1, "drop finished sessions after this long (env EXPERIMENT_SESSION_RETENTION, 0 keeps them)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveHTTPAddr != "" {
		cfg.HTTPAddr = serveHTTPAddr
	}
	if serveGRPCAddr != "" {
		cfg.GRPCAddr = serveGRPCAddr
	}
	if serveSessionRetention >= 0 {
		cfg.SessionRetention = serveSessionRetention
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var machines []*session.Machine
	for _, name := range []protocol.Name{protocol.NameFixed, protocol.NameStaircase} {
		m, err := a.machine(name)
		if err != nil {
			return err
		}
		machines = append(machines, m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := session.NewRegistry()
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewServer(reg, cfg.ProtocolName(), logger, machines...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, hs := health.NewServer()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("protocol", cfg.Protocol))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc health listening", zap.String("addr", cfg.GRPCAddr))
		return grpcSrv.Serve(lis)
	})
	if serveResubmitInterval > 0 {
		g.Go(func() error {
			drainLoop(ctx, a, serveResubmitInterval)
			return nil
		})
	}
	if cfg.SessionRetention > 0 {
		g.Go(func() error {
			pruneLoop(ctx, reg, cfg.SessionRetention, time.Now)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// drainLoop resubmits spooled batches until ctx is done.
func drainLoop(ctx context.Context, a *app, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	r := a.resubmitter()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sum, err := r.Drain(ctx)
			if err != nil {
				logger.Warn("spool drain failed", zap.Error(err))
				continue
			}
			if sum.Pending > 0 {
				logger.Info("spool drained",
					zap.Int("pending", sum.Pending),
					zap.Int("resubmitted", sum.Resubmitted),
					zap.Int("failed", sum.Failed))
			}
		}
	}
}

// pruneLoop evicts finished sessions older than retention until ctx is done.
func pruneLoop(ctx context.Context, reg *session.Registry, retention time.Duration, now func() time.Time) {
	t := time.NewTicker(max(retention/2, time.Millisecond))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := reg.Prune(now().Add(-retention)); n > 0 {
				logger.Info("sessions pruned", zap.Int("removed", n), zap.Int("live", reg.Len()))
			}
		}
	}
}
