package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want SubscriptionStatus
	}{
		{"bool true", true, StatusActive},
		{"bool false", false, StatusInactive},
		{"lower text", "active", StatusActive},
		{"mixed case text", "AcTiVe", StatusActive},
		{"bytes", []byte("active"), StatusActive},
		{"text true is not active", "true", StatusInactive},
		{"canceled", "canceled", StatusInactive},
		{"nil", nil, StatusInactive},
		{"number", 1, StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubscriptionStatus(tt.raw))
		})
	}
}

func TestSubscriptionStatusScanAndJSON(t *testing.T) {
	var s SubscriptionStatus
	require.NoError(t, s.Scan(true))
	assert.Equal(t, StatusActive, s)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"active"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`false`), &s))
	assert.Equal(t, StatusInactive, s)
}

func TestSeatCount(t *testing.T) {
	assert.Equal(t, 1, Subscription{}.SeatCount())
	assert.Equal(t, 1, Subscription{Seats: -3}.SeatCount())
	assert.Equal(t, 4, Subscription{Seats: 4}.SeatCount())
}
