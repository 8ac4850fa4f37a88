package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// relayedEvents are copied from the bus to Kafka when a broker is configured.
var relayedEvents = []string{
	domorder.OrderCreatedEvent{}.EventName(),
	domorder.OrderPaidEvent{}.EventName(),
	domorder.OrderPaymentFailedEvent{}.EventName(),
	domorder.OrderCancelledEvent{}.EventName(),
	domorder.OrderStatusChangedEvent{}.EventName(),
	domorder.OrderRefundSettledEvent{}.EventName(),
	domcatalog.StockAdjustedEvent{}.EventName(),
	domcatalog.StockRejectedEvent{}.EventName(),
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Service.Addr = addr
			}

			zl, err := logging.NewLogger(logging.Options{
				Service: cfg.Service.Name,
				Env:     cfg.Service.Env,
				Level:   cfg.Service.LogLevel,
			})
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()
			zap.ReplaceGlobals(zl)

			app, err := newApp(cfg, zl, prometheus.NewRegistry())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides service.addr)")
	return cmd
}

// app is the wired process: stores, engine, orchestrator, event bus and
// HTTP server.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	bus    *outbox.Bus
	relay  *kafka.Relay
	server *http.Server
}

func newApp(cfg config.Config, zl *zap.Logger, reg *prometheus.Registry) (*app, error) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obsLogger := zaplogger.New(zl)
	tel := infraobs.WithPrometheus(reg, "", oteltrace.New(cfg.Service.Name), obsLogger)

	products := memory.NewCatalogRepository()
	for i, seed := range cfg.Catalog.Seed {
		p, err := seed.Product()
		if err != nil {
			return nil, fmt.Errorf("catalog.seed[%d]: %w", i, err)
		}
		if err := products.Add(context.Background(), p); err != nil {
			return nil, fmt.Errorf("catalog.seed[%d]: %w", i, err)
		}
	}

	policy, err := payment.NewRandomPolicy(cfg.PolicyConfig())
	if err != nil {
		return nil, err
	}
	engine, err := payment.NewEngine(cfg.InterestPercent(), cfg.DiscountPercent(), policy)
	if err != nil {
		return nil, err
	}

	bus := outbox.NewBus(obsLogger)
	a := &app{cfg: cfg, log: logging.System(zl), bus: bus}

	relay, err := kafka.NewRelay(cfg.Kafka.Brokers, cfg.Kafka.Topic, obsLogger)
	switch {
	case errors.Is(err, kafka.ErrDisabled):
	case err != nil:
		return nil, err
	default:
		a.relay = relay
		outbox.Forward(bus, relay, relayedEvents...)
	}

	svc := apporder.NewService(apporder.Dependencies{
		Catalog:   products,
		Orders:    memory.NewOrderRepository(),
		Engine:    engine,
		IDs:       id.NewUUIDGenerator(),
		Publisher: bus,
		Telemetry: tel,
		Shipping:  cfg.ShippingRate(),
		Guard:     cfg.Guard(),
	})
	if cfg.Refund.AutoProcess {
		apporder.NewRefundWorker(bus, apporder.RefundUseCaseOf(svc), obsLogger).Start()
	}

	handler := httppresentation.NewHandler(svc, products, obsLogger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", handler.Router())

	a.server = &http.Server{
		Addr:              cfg.Service.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// run serves until ctx is done, then drains HTTP, the bus and the relay.
func (a *app) run(ctx context.Context) error {
	a.bus.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http_server_start",
			zap.String("addr", a.server.Addr),
			zap.Bool("kafka_relay", a.relay != nil),
			zap.Bool("refund_auto_process", a.cfg.Refund.AutoProcess),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			a.log.Error("http_server_error", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		a.log.Info("http_server_stopped")
	}
	a.bus.Stop(shutdownCtx)
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			a.log.Warn("kafka_relay_close_error", zap.Error(err))
		}
	}
	return serveErr
}
