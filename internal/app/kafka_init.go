package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/messaging/kafka"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initInvalidationConsumer подписывает кэш на топик инвалидации.
func initInvalidationConsumer(cfg Config, inv kafka.Invalidator, observer kafka.InvalidationObserver, logger *log.Entry) (*kafka.Consumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}

	handler := kafka.NewInvalidationHandler(inv, observer, logger.WithField("layer", "invalidation"))
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaInvalidationTopic}, handler)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, cache invalidation feed disabled")
		return nil, err
	}

	logger.WithFields(log.Fields{
		"topic": cfg.KafkaInvalidationTopic,
		"group": cfg.KafkaGroupID,
	}).Info("kafka invalidation consumer initialized")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
