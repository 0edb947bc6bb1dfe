package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

// TopicSpec параметры создаваемого топика
type TopicSpec struct {
	Partitions        int32
	ReplicationFactor int16
}

// DefaultTopicSpec три партиции без репликации (локальный кластер)
func DefaultTopicSpec() TopicSpec {
	return TopicSpec{Partitions: 3, ReplicationFactor: 1}
}

// NewSaramaConfig создает конфигурацию Sarama для административного клиента
func NewSaramaConfig(clientID string) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = clientID
	saramaConfig.Version = sarama.V3_3_0_0
	saramaConfig.Admin.Timeout = 15 * time.Second
	saramaConfig.Net.DialTimeout = 10 * time.Second
	return saramaConfig
}
