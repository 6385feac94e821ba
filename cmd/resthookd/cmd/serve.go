package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nsqio/go-nsq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/api"
	"github.com/xraph/resthook/delivery"
	"github.com/xraph/resthook/delivery/nsqqueue"
	"github.com/xraph/resthook/observability"
	"github.com/xraph/resthook/ratelimit"
	"github.com/xraph/resthook/store/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the subscription API and delivery workers",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.String("nsqd", "", "nsqd TCP address; when set, deliveries are published to NSQ")
	f.String("nsq-topic", nsqqueue.DefaultTopic, "NSQ topic for deliveries")
	f.String("nsq-channel", nsqqueue.DefaultChannel, "NSQ channel for the delivery consumer")
	f.Bool("consume", true, "consume the NSQ topic in this process")
	f.String("otlp-endpoint", "", "OTLP/HTTP endpoint for traces; empty disables export")

	_ = v.BindPFlag("addr", f.Lookup("addr"))
	_ = v.BindPFlag("nsqd_addr", f.Lookup("nsqd"))
	_ = v.BindPFlag("nsq_topic", f.Lookup("nsq-topic"))
	_ = v.BindPFlag("nsq_channel", f.Lookup("nsq-channel"))
	_ = v.BindPFlag("nsq_consume", f.Lookup("consume"))
	_ = v.BindPFlag("otlp_endpoint", f.Lookup("otlp-endpoint"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if endpoint := v.GetString("otlp_endpoint"); endpoint != "" {
		shutdown, err := initTracing(ctx, "resthookd", endpoint)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	opts := []resthook.Option{
		resthook.WithStore(memory.New()),
		resthook.WithConfig(cfg),
		resthook.WithLogger(logger),
		resthook.WithMetrics(metrics),
	}

	nsqdAddr := v.GetString("nsqd_addr")
	topic := v.GetString("nsq_topic")
	if nsqdAddr != "" {
		producer, err := nsq.NewProducer(nsqdAddr, nsq.NewConfig())
		if err != nil {
			return fmt.Errorf("nsq producer: %w", err)
		}
		defer producer.Stop()
		opts = append(opts, resthook.WithDispatcher(nsqqueue.NewPublisher(producer, topic, logger)))
	}

	hooks, err := resthook.New(opts...)
	if err != nil {
		return err
	}
	hooks.Start(context.WithoutCancel(ctx))

	var consumer *nsq.Consumer
	if nsqdAddr != "" && v.GetBool("nsq_consume") {
		// Attempts outlive the signal; the shutdown deadline bounds them.
		consumer, err = startConsumer(context.WithoutCancel(ctx), hooks, cfg, metrics, logger)
		if err != nil {
			return err
		}
	}

	watchConfig(hooks, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", api.NewHandler(hooks, logger))

	httpSrv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("resthookd listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("resthookd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), durationOr("shutdown_timeout", 30*time.Second))
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if consumer != nil {
		consumer.Stop()
		select {
		case <-consumer.StopChan:
		case <-shutdownCtx.Done():
			logger.Warn("nsq consumer did not stop before the shutdown deadline")
		}
	}
	return hooks.Stop(shutdownCtx)
}

func startConsumer(ctx context.Context, hooks *resthook.Hooks, cfg resthook.Config, metrics *observability.Metrics, logger *slog.Logger) (*nsq.Consumer, error) {
	conf := nsq.NewConfig()
	conf.MaxInFlight = cfg.Workers

	consumer, err := nsq.NewConsumer(v.GetString("nsq_topic"), v.GetString("nsq_channel"), conf)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer: %w", err)
	}

	exec := delivery.ExecutorConfig{
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        metrics,
	}
	if cfg.CleanupGone {
		exec.OnGone = hooks.RemoveSubscription
	}
	if cfg.TargetRateLimit > 0 {
		exec.Limiter = ratelimit.New(cfg.TargetRateLimit, cfg.TargetBurst)
	}
	consumer.AddConcurrentHandlers(nsqqueue.NewConsumer(ctx, exec, logger), cfg.Workers)

	if err := consumer.ConnectToNSQD(v.GetString("nsqd_addr")); err != nil {
		return nil, fmt.Errorf("connect to nsqd: %w", err)
	}
	return consumer, nil
}

// watchConfig reloads the event configuration and schemas when the config
// file changes. A broken file leaves the running configuration in place.
func watchConfig(hooks *resthook.Hooks, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := loadConfig()
		if err != nil {
			logger.Error("config reload failed", "file", e.Name, "error", err)
			return
		}
		if err := hooks.Reload(cfg.Events); err != nil {
			logger.Error("config reload rejected", "file", e.Name, "error", err)
			return
		}
		hooks.Catalog().ReloadSchemas(cfg.Schemas)
	})
	v.WatchConfig()
}
