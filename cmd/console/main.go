// Command console запускает веб-консоль заказов и клиентов.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/app"
	"github.com/vladislavdragonenkov/ordersconsole/internal/version"
)

// loadDotEnv подхватывает .env, если он есть; уже заданные переменные не перезаписываются.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := loadDotEnv(".env"); err != nil {
		log.WithError(err).Fatal("не удалось прочитать .env")
	}
	cfg, err := app.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	if err := app.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("некорректная конфигурация логгера")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"api_base_url":   cfg.APIBaseURL,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  len(cfg.KafkaBrokers) > 0,
		"auth_enabled":   cfg.JWTSecret != "",
	}).Info("запускаем консоль")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("консоль остановлена")
}
