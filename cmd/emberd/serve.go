package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smukkama/emberd/internal/acceptor"
	"github.com/smukkama/emberd/internal/accesslog"
	"github.com/smukkama/emberd/internal/config"
	"github.com/smukkama/emberd/internal/examplehandler"
	"github.com/smukkama/emberd/internal/handler"
	"github.com/smukkama/emberd/internal/logging"
	"github.com/smukkama/emberd/internal/pool"
	"github.com/smukkama/emberd/internal/stats"
	"github.com/smukkama/emberd/internal/token"
	"github.com/smukkama/emberd/internal/transport"
	"github.com/smukkama/emberd/internal/worker"
)

func newServeCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logLevel)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func runServe(logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New("emberd", logging.ParseLevel(logLevel))
	log.Info("starting emberd")

	listener, err := bindListener(cfg)
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}
	log.WithField("addr", listener.Addr()).WithField("kind", listener.Kind()).Info("listening")

	var accessLogSink *accesslog.Sink
	if cfg.AccessLog.Enabled {
		accessLogSink = accesslog.NewSink(cfg.AccessLog.Brokers, cfg.AccessLog.Topic)
		defer accessLogSink.Close()
		log.WithField("topic", cfg.AccessLog.Topic).Info("access log sink enabled")
	}

	var statsPublisher *stats.Publisher
	if cfg.Stats.Enabled {
		statsPublisher = stats.NewPublisher(redis.NewClient(&redis.Options{Addr: cfg.Stats.Addr}))
		log.WithField("addr", cfg.Stats.Addr).Info("stats publisher enabled")
	}

	registry := worker.NewRegistry()
	handlers := handler.NewRegistry(examplehandler.Hello{})

	workerCount := cfg.WorkerPool.WorkerCount
	if workerCount == 0 {
		workerCount = runtime.NumCPU()
	}

	workerCtx := &worker.Context{
		Conns:     registry,
		Handlers:  handlers,
		Log:       log,
		AccessLog: accessLogSink,
	}

	var run pool.WorkerFunc
	if cfg.WorkerPool.Blocking {
		run = worker.Blocking(workerCtx)
		log.Info("using blocking worker strategy")
	} else {
		run = worker.NonBlocking(workerCtx)
		log.Info("using non-blocking worker strategy")
	}

	p := pool.New(workerCount, run)
	log.WithField("workers", workerCount).Info("worker pool started")

	acc := acceptor.New(listener, p, registry, token.NewAllocator(), cfg.Transport.MaxHeaders, cfg.Transport.ReadBudgetBytes, log)
	acceptErrCh := make(chan error, 1)
	go func() { acceptErrCh <- acc.Run() }()

	statsStop := make(chan struct{})
	if statsPublisher != nil {
		go publishStatsLoop(statsPublisher, registry, log, statsStop)
	}
	defer close(statsStop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("received shutdown signal")
	case err := <-acceptErrCh:
		if err != nil {
			log.WithError(err).Error("acceptor stopped unexpectedly")
		}
	}

	log.Info("shutting down")
	acc.Stop()
	p.Shutdown()
	p.Join()
	log.Info("shutdown complete")
	return nil
}

// publishStatsLoop periodically reports this process's live connection
// count under worker ID 0, since the gateway runs a single OS process per
// listener; a deployment running several processes behind one listener
// (socket activation fan-out) would assign each its own worker ID range.
func publishStatsLoop(pub *stats.Publisher, registry *worker.Registry, log *logrus.Entry, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := stats.Snapshot{
				WorkerID:    0,
				ActiveConns: registry.Len(),
				LastUpdated: time.Now(),
			}
			if err := pub.Publish(context.Background(), snap); err != nil {
				log.WithError(err).Warn("stats publish failed")
			}
		}
	}
}

// bindListener chooses socket activation when requested (TCP-preferred
// tie-break against the inherited descriptor), otherwise a manual TCP or
// Unix domain bind.
func bindListener(cfg *config.Config) (transport.Listener, error) {
	if cfg.Transport.SocketActivation {
		return transport.FromActivationPreferTCP(cfg.Transport.UnixFallbackPath)
	}
	if cfg.Transport.Unix {
		return transport.ListenUnix(cfg.Transport.Addr, cfg.Transport.AcceptBacklog)
	}
	return transport.ListenTCP(cfg.Transport.Addr, cfg.Transport.AcceptBacklog)
}
