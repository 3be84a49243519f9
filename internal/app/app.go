// Package app собирает консоль заказов и клиентов из конфигурации и управляет её жизненным циклом.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/auth"
	"github.com/vladislavdragonenkov/ordersconsole/internal/client/queryapi"
	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ordersconsole/internal/health"
	"github.com/vladislavdragonenkov/ordersconsole/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordersconsole/internal/metrics"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/querycache"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/views"
	"github.com/vladislavdragonenkov/ordersconsole/internal/transport/web"
	"github.com/vladislavdragonenkov/ordersconsole/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает консоль и блокируется до отмены ctx или ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.WithField("component", "app")
	consoleMetrics := metrics.NewConsoleMetrics()

	storage, err := initViewStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.close(); err != nil {
			logger.WithError(err).Warn("failed to close saved views storage")
		}
	}()

	// Аудит в Kafka опционален: без брокеров события только логируются.
	var audit domain.AuditSink = domain.NopAuditSink{}
	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		publisher := kafka.NewAuditPublisher(producer, cfg.KafkaAuditTopic, consoleMetrics)
		audit = publisher
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.WithError(err).Warn("failed to drain audit publisher")
			}
			closeKafka(producer, logger)
		}()
	}

	api := queryapi.New(cfg.APIBaseURL, cfg.APITimeout,
		queryapi.WithLogger(logger.WithField("layer", "queryapi")),
		queryapi.WithObserver(consoleMetrics),
	)
	catalogSvc := catalog.NewService(api,
		catalog.WithLogger(logger.WithField("layer", "catalog")),
		catalog.WithAudit(audit),
		catalog.WithCacheOptions(
			querycache.WithTTL(cfg.CacheTTL),
			querycache.WithMaxEntries(cfg.CacheMaxEntries),
			querycache.WithObserver(consoleMetrics),
		),
	)
	viewsSvc := views.NewService(storage.repo,
		views.WithLogger(logger.WithField("layer", "views")),
		views.WithAudit(audit),
	)

	janitor := querycache.NewJanitor(catalogSvc.Sweepers(),
		querycache.WithJanitorLogger(logger.WithField("layer", "query-cache-janitor")),
		querycache.WithInterval(cfg.CacheSweepInterval),
		querycache.WithRunObserver(consoleMetrics),
	)
	go janitor.Run(ctx)

	consumer, err := initInvalidationConsumer(cfg, catalogSvc, consoleMetrics, logger)
	if err == nil && consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Warn("failed to start kafka consumer")
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop kafka consumer")
			}
		}()
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", storage.ping))
	// Недоступный upstream не делает консоль неготовой: списки показывают ошибку на странице.
	healthHandler.RegisterOptional("upstream", healthcheck.NewFuncChecker("upstream", api.Ping))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	server, err := web.NewServer(catalogSvc, viewsSvc,
		web.WithLogger(logger.WithField("layer", "http")),
		web.WithObserver(consoleMetrics),
		web.WithValidator(auth.NewValidator(cfg.JWTSecret)),
	)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("консоль слушает %s", cfg.HTTPAddr)
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("console shutdown with error")
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
