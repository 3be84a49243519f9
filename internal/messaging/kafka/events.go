package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

// Topics по умолчанию.
const (
	TopicAudit        = "console.audit"
	TopicInvalidation = "console.cache.invalidate"
)

// HeaderEventType дублирует тип события в заголовке сообщения.
const HeaderEventType = "x-event-type"

// AuditMessage: событие аудита в формате топика.
type AuditMessage struct {
	ID         string            `json:"id"`
	EventType  string            `json:"event_type"`
	Entity     string            `json:"entity,omitempty"`
	Subject    string            `json:"subject"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewAuditMessage строит сообщение из события аудита.
func NewAuditMessage(event domain.AuditEvent) AuditMessage {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return AuditMessage{
		ID:         uuid.NewString(),
		EventType:  event.Type,
		Entity:     string(event.Entity),
		Subject:    event.Subject,
		Attributes: event.Attributes,
		OccurredAt: occurredAt.UTC(),
	}
}

// InvalidationMessage: команда сброса кэша. Пустая сущность означает полный сброс.
type InvalidationMessage struct {
	Entity string `json:"entity"`
	Key    string `json:"key,omitempty"`
}

// ParseInvalidation разбирает и проверяет команду сброса кэша.
func ParseInvalidation(message *sarama.ConsumerMessage) (InvalidationMessage, error) {
	var cmd InvalidationMessage
	if err := json.Unmarshal(message.Value, &cmd); err != nil {
		return InvalidationMessage{}, fmt.Errorf("failed to unmarshal invalidation: %w", err)
	}
	cmd.Entity = strings.TrimSpace(cmd.Entity)
	cmd.Key = strings.TrimSpace(cmd.Key)
	if cmd.Entity == "" {
		return cmd, nil
	}
	entity, err := domain.ParseEntity(cmd.Entity)
	if err != nil {
		return InvalidationMessage{}, fmt.Errorf("invalidation entity %q: %w", cmd.Entity, err)
	}
	cmd.Entity = string(entity)
	return cmd, nil
}
