package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error { return m.errorsCh }

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return TopicInvalidation }
func (m *mockClaim) Partition() int32                         { return 0 }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func claimOf(values ...string) *mockClaim {
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage, len(values))}
	for i, v := range values {
		claim.messages <- &sarama.ConsumerMessage{Topic: TopicInvalidation, Offset: int64(i), Value: []byte(v)}
	}
	close(claim.messages)
	return claim
}

func TestNewConsumerError(t *testing.T) {
	handler := func(context.Context, *sarama.ConsumerMessage) error { return nil }
	if _, err := NewConsumer([]string{"invalid-broker:9092"}, "group", []string{"topic"}, handler); err == nil {
		t.Fatal("expected new consumer error")
	}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumeCalls := 0
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(context.Context, []string, sarama.ConsumerGroupHandler) error {
			consumeCalls++
			cancel()
			return errors.New("rebalance")
		},
	}

	consumer := &Consumer{
		consumer: group,
		topics:   []string{TopicInvalidation},
		handler:  func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:   log.WithField("test", "consumer"),
	}

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if consumeCalls != 1 {
		t.Fatalf("unexpected consume calls: got=%d want=1", consumeCalls)
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := &Consumer{consumer: group, logger: log.WithField("test", "stop")}
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumeClaimMarksHandledAndSkippedMessages(t *testing.T) {
	var handled []string
	consumer := &Consumer{
		handler: func(_ context.Context, msg *sarama.ConsumerMessage) error {
			if string(msg.Value) == "bad" {
				return errors.New("malformed")
			}
			handled = append(handled, string(msg.Value))
			return nil
		},
		logger: log.WithField("test", "claim"),
	}

	session := &mockSession{ctx: context.Background()}
	if err := consumer.ConsumeClaim(session, claimOf("a", "bad", "b")); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 3 {
		t.Fatalf("every message must be marked, got %d", len(session.marked))
	}
	if len(handled) != 2 {
		t.Fatalf("unexpected handled messages: %v", handled)
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim-stop"),
	}
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}

type stubInvalidator struct {
	mu       sync.Mutex
	entities []domain.Entity
	keys     []string
	purges   int
}

func (s *stubInvalidator) Invalidate(entity domain.Entity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entity)
	return 2
}

func (s *stubInvalidator) InvalidateKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return true
}

func (s *stubInvalidator) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges++
	return 5
}

type countingInvalidations struct{ n int }

func (c *countingInvalidations) Invalidated(string) { c.n++ }

func TestInvalidationHandler(t *testing.T) {
	inv := &stubInvalidator{}
	counter := &countingInvalidations{}
	consumer := &Consumer{
		handler: NewInvalidationHandler(inv, counter, log.WithField("test", "invalidation")),
		logger:  log.WithField("test", "invalidation-consumer"),
	}

	session := &mockSession{ctx: context.Background()}
	claim := claimOf(
		`{"entity":"Orders"}`,
		`{"entity":"customers","key":"customers?include=total&skip=0&take=10"}`,
		`{"entity":""}`,
		`{"entity":"products"}`,
		`not json`,
	)
	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}

	if len(inv.entities) != 1 || inv.entities[0] != domain.EntityOrders {
		t.Fatalf("unexpected entity invalidations: %v", inv.entities)
	}
	if len(inv.keys) != 1 || inv.keys[0] != "customers?include=total&skip=0&take=10" {
		t.Fatalf("unexpected key invalidations: %v", inv.keys)
	}
	if inv.purges != 1 {
		t.Fatalf("unexpected purges: got=%d want=1", inv.purges)
	}
	if counter.n != 3 {
		t.Fatalf("unexpected applied commands: got=%d want=3", counter.n)
	}
	if len(session.marked) != 5 {
		t.Fatalf("malformed commands must be skipped, marked=%d", len(session.marked))
	}
}

func TestParseInvalidation(t *testing.T) {
	cmd, err := ParseInvalidation(&sarama.ConsumerMessage{Value: []byte(`{"entity":" CUSTOMERS ","key":" k "}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Entity != "customers" || cmd.Key != "k" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if _, err := ParseInvalidation(&sarama.ConsumerMessage{Value: []byte(`{"entity":"products"}`)}); !errors.Is(err, domain.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}
