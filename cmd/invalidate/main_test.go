package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/vladislavdragonenkov/ordersconsole/internal/messaging/kafka"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseConfig_DryRunWithoutBrokers(t *testing.T) {
	cfg, err := parseConfig([]string{"--entity", "orders"}, noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.execute {
		t.Fatal("expected dry-run by default")
	}
	if cfg.topic != kafka.TopicInvalidation {
		t.Fatalf("expected default topic, got %q", cfg.topic)
	}
}

func TestParseConfig_BrokersFromEnv(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "CONSOLE_KAFKA_BROKERS" {
			return "k1:9092, k2:9092", true
		}
		return "", false
	}
	cfg, err := parseConfig([]string{"--all", "--execute"}, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.brokers) != 2 || cfg.brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.brokers)
	}
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	if _, err := parseConfig([]string{"--all", "--execute"}, noEnv); err == nil {
		t.Fatal("expected error for --execute without brokers")
	}
	if _, err := parseConfig([]string{"--topic", " "}, noEnv); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestBuildCommands(t *testing.T) {
	commands, err := buildCommands(config{
		entity: []string{"Customers"},
		keys:   []string{"orders?skip=0&take=10", "customers:post?countryIn=UK"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []kafka.InvalidationMessage{
		{Entity: "customers"},
		{Entity: "orders", Key: "orders?skip=0&take=10"},
		{Entity: "customers", Key: "customers:post?countryIn=UK"},
	}
	if len(commands) != len(expected) {
		t.Fatalf("expected %d commands, got %d", len(expected), len(commands))
	}
	for i := range expected {
		if commands[i] != expected[i] {
			t.Fatalf("command %d: expected %+v, got %+v", i, expected[i], commands[i])
		}
	}
}

func TestBuildCommands_AllWins(t *testing.T) {
	commands, err := buildCommands(config{all: true, entity: []string{"orders"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commands) != 1 || commands[0] != (kafka.InvalidationMessage{}) {
		t.Fatalf("expected single purge command, got %+v", commands)
	}
}

func TestBuildCommands_Errors(t *testing.T) {
	if _, err := buildCommands(config{}); !errors.Is(err, errNothingToInvalidate) {
		t.Fatalf("expected errNothingToInvalidate, got %v", err)
	}
	if _, err := buildCommands(config{entity: []string{"products"}}); err == nil {
		t.Fatal("expected error for unknown entity")
	}
	if _, err := buildCommands(config{keys: []string{"products?take=10"}}); err == nil {
		t.Fatal("expected error for key of unknown entity")
	}
}

func TestRun_DryRunDoesNotPublish(t *testing.T) {
	old := newCommandProducer
	defer func() { newCommandProducer = old }()
	newCommandProducer = func(config) (commandProducer, error) {
		t.Fatal("producer must not be created in dry-run")
		return nil, nil
	}

	var out bytes.Buffer
	err := run(context.Background(), config{topic: "t", entity: []string{"orders"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `dry-run t {"entity":"orders"}`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestRun_ExecutePublishes(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "console.cache.invalidate" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != eventTypeInvalidate {
			return errors.New("missing event type header")
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var cmd kafka.InvalidationMessage
		if err := json.Unmarshal(value, &cmd); err != nil {
			return err
		}
		if cmd.Entity != "orders" || cmd.Key != "orders?skip=0&take=10" {
			return errors.New("unexpected command " + string(value))
		}
		return nil
	})

	old := newCommandProducer
	defer func() { newCommandProducer = old }()
	newCommandProducer = func(config) (commandProducer, error) { return producer, nil }

	var out bytes.Buffer
	cfg := config{topic: kafka.TopicInvalidation, keys: []string{"orders?skip=0&take=10"}, execute: true}
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `published entity="orders"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestRun_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	old := newCommandProducer
	defer func() { newCommandProducer = old }()
	newCommandProducer = func(config) (commandProducer, error) { return producer, nil }

	err := run(context.Background(), config{topic: "t", all: true, execute: true}, &bytes.Buffer{})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("INVALIDATE_TEST_FAIL_EXIT") == "1" {
		fail("boom")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "INVALIDATE_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
