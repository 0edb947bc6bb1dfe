package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Producer определяет интерфейс для публикации событий.
// Публикация неблокирующая: ошибки доставки только логируются.
type Producer interface {
	// Publish кодирует payload в JSON и ставит сообщение в очередь на отправку.
	Publish(ctx context.Context, topic, key string, payload any) error
	// Close дожидается отправки буфера и закрывает соединение.
	Close() error
}

// kafkaProducer реализует интерфейс Producer, используя segmentio/kafka-go.
type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer создает и настраивает новый продюсер Kafka.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	p := &kafkaProducer{log: log}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		Async:        true,
		Completion:   p.completion,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)
	return p, nil
}

func (k *kafkaProducer) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		k.log.Errorw("Failed to deliver message to Kafka", "error", err, "topic", m.Topic, "key", string(m.Key))
	}
}

// Publish отправляет событие в указанный топик. Ключ — id пользователя или продукта.
func (k *kafkaProducer) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		k.log.Errorw("Failed to marshal event to JSON for Kafka", "error", err, "topic", topic)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := k.writer.WriteMessages(ctx, message); err != nil {
		k.log.Errorw("Failed to enqueue message for Kafka", "error", err, "topic", topic, "key", key)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debugw("Message enqueued for Kafka", "topic", topic, "key", key)
	return nil
}

// Close закрывает соединение Kafka Writer.
func (k *kafkaProducer) Close() error {
	k.log.Infow("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}

// NopProducer используется, когда брокеры не настроены.
type NopProducer struct {
	log *logger.Logger
}

// NewNopProducer создает продюсер, который только логирует события.
func NewNopProducer(log *logger.Logger) *NopProducer {
	return &NopProducer{log: log}
}

func (n *NopProducer) Publish(_ context.Context, topic, key string, _ any) error {
	n.log.Debugw("Kafka disabled, event dropped", "topic", topic, "key", key)
	return nil
}

func (n *NopProducer) Close() error { return nil }
