package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

const defaultAuditBuffer = 256

var (
	errAuditBufferFull = errors.New("audit buffer is full")
	errPublisherClosed = errors.New("audit publisher is closed")
)

// AuditObserver получает результат публикации каждого события.
type AuditObserver interface {
	AuditPublished(eventType string, err error)
}

type nopAuditObserver struct{}

func (nopAuditObserver) AuditPublished(string, error) {}

// AuditPublisher отправляет события аудита в Kafka из фоновой горутины,
// чтобы запрос пользователя не ждал брокер. При переполнении буфера событие отбрасывается.
type AuditPublisher struct {
	producer *Producer
	topic    string
	observer AuditObserver
	logger   *log.Entry

	mu     sync.RWMutex
	closed bool
	events chan domain.AuditEvent
	done   chan struct{}
}

var _ domain.AuditSink = (*AuditPublisher)(nil)

// NewAuditPublisher запускает фоновую публикацию. Close дожидается отправки буфера.
func NewAuditPublisher(producer *Producer, topic string, observer AuditObserver) *AuditPublisher {
	if topic == "" {
		topic = TopicAudit
	}
	if observer == nil {
		observer = nopAuditObserver{}
	}
	p := &AuditPublisher{
		producer: producer,
		topic:    topic,
		observer: observer,
		logger:   log.WithField("component", "audit-publisher"),
		events:   make(chan domain.AuditEvent, defaultAuditBuffer),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// Record ставит событие в очередь публикации.
func (p *AuditPublisher) Record(_ context.Context, event domain.AuditEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.observer.AuditPublished(event.Type, errPublisherClosed)
		return
	}
	select {
	case p.events <- event:
	default:
		p.logger.WithField("event_type", event.Type).Warn("audit buffer is full, event dropped")
		p.observer.AuditPublished(event.Type, errAuditBufferFull)
	}
}

// Close прекращает приём событий и дожидается публикации оставшихся.
func (p *AuditPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

func (p *AuditPublisher) loop() {
	defer close(p.done)
	for event := range p.events {
		p.publish(event)
	}
}

func (p *AuditPublisher) publish(event domain.AuditEvent) {
	msg := NewAuditMessage(event)
	key := msg.Subject
	if key == "" {
		key = msg.ID
	}
	err := p.producer.PublishEvent(p.topic, key, msg, sarama.RecordHeader{
		Key:   []byte(HeaderEventType),
		Value: []byte(msg.EventType),
	})
	p.observer.AuditPublished(event.Type, err)
}
