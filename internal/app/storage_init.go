package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/file"
	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/postgres"
)

// viewStorage: выбранное хранилище представлений и его обслуживание.
type viewStorage struct {
	repo  domain.SavedViewRepository
	ping  func(ctx context.Context) error
	close func() error
}

func noopPing(context.Context) error { return nil }

func noopClose() error { return nil }

// initViewStorage открывает хранилище представлений по storage_driver.
func initViewStorage(ctx context.Context, cfg Config, logger *log.Entry) (viewStorage, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		logger.Info("saved views storage: memory")
		return viewStorage{repo: memory.NewSavedViewRepository(), ping: noopPing, close: noopClose}, nil

	case StorageDriverFile:
		repo, err := file.NewSavedViewRepository(cfg.StorageFilePath)
		if err != nil {
			return viewStorage{}, fmt.Errorf("open saved views file: %w", err)
		}
		logger.WithField("path", repo.Path()).Info("saved views storage: file")
		return viewStorage{
			repo: repo,
			ping: func(ctx context.Context) error {
				_, err := repo.List(ctx, "")
				return err
			},
			close: noopClose,
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return viewStorage{}, fmt.Errorf("postgres storage requires postgres_dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return viewStorage{}, err
		}
		if cfg.PostgresAutoMigrate {
			applied, err := store.MigrateUp(ctx, 0)
			if err != nil {
				_ = store.Close()
				return viewStorage{}, fmt.Errorf("apply migrations: %w", err)
			}
			logger.WithField("applied", applied).Info("postgres migrations applied")
		}
		logger.Info("saved views storage: postgres")
		return viewStorage{repo: postgres.NewSavedViewRepository(store), ping: store.Ping, close: store.Close}, nil

	default:
		return viewStorage{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
