package kafka

import (
	"errors"
	"fmt"

	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/IBM/sarama"
)

// MissingTopics возвращает топики из required, которых нет в existing.
func MissingTopics(required []string, existing map[string]sarama.TopicDetail) []string {
	var missing []string
	for _, name := range required {
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// EnsureKafkaTopics проверяет и создает необходимые топики Kafka через ClusterAdmin.
func EnsureKafkaTopics(brokers []string, spec TopicSpec, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("kafka broker address is empty")
	}

	admin, err := sarama.NewClusterAdmin(brokers, NewSaramaConfig("entitlement-service-admin"))
	if err != nil {
		log.Errorw("Failed to connect to Kafka cluster admin", "brokers", brokers, "error", err)
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer func() {
		if err := admin.Close(); err != nil {
			log.Warnw("Failed to close Kafka cluster admin", "error", err)
		}
	}()

	existing, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("kafka list topics failed: %w", err)
	}

	missing := MissingTopics(Topics, existing)
	if len(missing) == 0 {
		log.Infow("All required topics already exist")
		return nil
	}

	for _, topic := range missing {
		detail := &sarama.TopicDetail{
			NumPartitions:     spec.Partitions,
			ReplicationFactor: spec.ReplicationFactor,
		}
		if err := admin.CreateTopic(topic, detail, false); err != nil {
			if errors.Is(err, sarama.ErrTopicAlreadyExists) {
				log.Warnw("Topic already existed during creation attempt", "topic", topic)
				continue
			}
			log.Errorw("Failed to create topic", "error", err, "topic", topic)
			return fmt.Errorf("kafka create topic %s failed: %w", topic, err)
		}
		log.Infow("Topic created", "topic", topic)
	}

	return nil
}
