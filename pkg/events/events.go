// Package events publishes authentication lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Type string

const (
	Login          Type = "login"
	Refresh        Type = "refresh"
	Logout         Type = "logout"
	RefreshRevoked Type = "refresh_revoked"
)

type AuthEvent struct {
	Type   Type      `json:"type"`
	UserID string    `json:"user_id"`
	Count  int64     `json:"count,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher is what services depend on; publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
	Close() error
}

// Writer is the subset of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish keys the message by user id so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}
	msg := kafka.Message{Key: []byte(ev.UserID), Value: b, Time: ev.At}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s event: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, AuthEvent) error { return nil }

func (Nop) Close() error { return nil }
