package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
)

func TestMissingTopics(t *testing.T) {
	existing := map[string]sarama.TopicDetail{
		TopicProfileCreated: {},
		"unrelated":         {},
	}

	missing := MissingTopics(Topics, existing)
	assert.Equal(t, []string{TopicProfileOrphaned, TopicOfferReplaced, TopicOfferInconsistent}, missing)
	assert.Empty(t, MissingTopics([]string{"unrelated"}, existing))
}

func TestNewSaramaConfigIsValid(t *testing.T) {
	cfg := NewSaramaConfig("test-client")
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "test-client", cfg.ClientID)
}
