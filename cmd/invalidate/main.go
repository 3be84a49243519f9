// Command invalidate публикует команды сброса кэша запросов в топик,
// который слушают запущенные экземпляры консоли.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/messaging/kafka"
)

const eventTypeInvalidate = "cache.invalidate"

var errNothingToInvalidate = errors.New("nothing to invalidate: pass --all, --entity or --key")

type config struct {
	brokers []string
	topic   string
	all     bool
	entity  []string
	keys    []string
	execute bool
}

type commandProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

var newCommandProducer = func(cfg config) (commandProducer, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := parseConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fail("%v", err)
	}
	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		fail("invalidate failed: %v", err)
	}
}

func parseConfig(args []string, lookup func(string) (string, bool)) (config, error) {
	var (
		cfg        config
		brokersRaw string
	)
	fs := pflag.NewFlagSet("invalidate", pflag.ContinueOnError)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers, comma separated (fallback: CONSOLE_KAFKA_BROKERS)")
	fs.StringVar(&cfg.topic, "topic", kafka.TopicInvalidation, "cache invalidation topic")
	fs.BoolVar(&cfg.all, "all", false, "purge every cached query")
	fs.StringSliceVar(&cfg.entity, "entity", nil, "drop all cached queries of an entity: customers|orders (repeatable)")
	fs.StringSliceVar(&cfg.keys, "key", nil, "drop one cache key, e.g. orders?skip=0&take=10 (repeatable)")
	fs.BoolVar(&cfg.execute, "execute", false, "publish commands; default is dry-run")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw, _ = lookup("CONSOLE_KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)
	if cfg.execute && len(cfg.brokers) == 0 {
		return config{}, errors.New("kafka brokers are required with --execute (--brokers or CONSOLE_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.topic) == "" {
		return config{}, errors.New("topic is required")
	}
	return cfg, nil
}

// buildCommands превращает флаги в команды. --all поглощает остальные.
func buildCommands(cfg config) ([]kafka.InvalidationMessage, error) {
	if cfg.all {
		return []kafka.InvalidationMessage{{}}, nil
	}

	var commands []kafka.InvalidationMessage
	for _, raw := range cfg.entity {
		entity, err := domain.ParseEntity(raw)
		if err != nil {
			return nil, err
		}
		commands = append(commands, kafka.InvalidationMessage{Entity: string(entity)})
	}
	for _, key := range cfg.keys {
		key = strings.TrimSpace(key)
		entity, err := keyEntity(key)
		if err != nil {
			return nil, err
		}
		commands = append(commands, kafka.InvalidationMessage{Entity: string(entity), Key: key})
	}
	if len(commands) == 0 {
		return nil, errNothingToInvalidate
	}
	return commands, nil
}

// keyEntity извлекает сущность из ключа кэша вида <entity>?<query> или <entity>:post?<query>.
func keyEntity(key string) (domain.Entity, error) {
	prefix := key
	if idx := strings.IndexAny(key, ":?"); idx >= 0 {
		prefix = key[:idx]
	}
	entity, err := domain.ParseEntity(prefix)
	if err != nil {
		return "", fmt.Errorf("cache key %q: %w", key, err)
	}
	return entity, nil
}

func run(_ context.Context, cfg config, out io.Writer) error {
	commands, err := buildCommands(cfg)
	if err != nil {
		return err
	}

	if !cfg.execute {
		for _, cmd := range commands {
			payload, _ := json.Marshal(cmd)
			_, _ = fmt.Fprintf(out, "dry-run %s %s\n", cfg.topic, payload)
		}
		_, _ = fmt.Fprintf(out, "%d command(s) not published, rerun with --execute\n", len(commands))
		return nil
	}

	producer, err := newCommandProducer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.WithError(err).Warn("failed to close kafka producer")
		}
	}()

	for _, cmd := range commands {
		if err := publish(producer, cfg.topic, cmd); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "published entity=%q key=%q\n", cmd.Entity, cmd.Key)
	}
	return nil
}

func publish(producer commandProducer, topic string, cmd kafka.InvalidationMessage) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(kafka.HeaderEventType), Value: []byte(eventTypeInvalidate)},
		},
	}
	if cmd.Entity != "" {
		msg.Key = sarama.StringEncoder(cmd.Entity)
	}
	if _, _, err := producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			brokers = append(brokers, part)
		}
	}
	return brokers
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
