package kafka

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

// Invalidator сбрасывает записи кэша запросов.
type Invalidator interface {
	Invalidate(entity domain.Entity) int
	InvalidateKey(key string) bool
	Purge() int
}

// InvalidationObserver считает применённые команды сброса.
type InvalidationObserver interface {
	Invalidated(source string)
}

const invalidationSource = "kafka"

// NewInvalidationHandler возвращает обработчик топика сброса кэша.
func NewInvalidationHandler(inv Invalidator, observer InvalidationObserver, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "cache-invalidation")
	}
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		cmd, err := ParseInvalidation(message)
		if err != nil {
			return err
		}

		var evicted int
		switch {
		case cmd.Entity == "":
			evicted = inv.Purge()
		case cmd.Key != "":
			if inv.InvalidateKey(cmd.Key) {
				evicted = 1
			}
		default:
			evicted = inv.Invalidate(domain.Entity(cmd.Entity))
		}

		if observer != nil {
			observer.Invalidated(invalidationSource)
		}
		logger.WithFields(log.Fields{
			"entity":  cmd.Entity,
			"key":     cmd.Key,
			"evicted": evicted,
		}).Info("cache invalidated")
		return nil
	}
}
