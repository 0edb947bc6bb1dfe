package entitlement

import (
	"fmt"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func TestIsActiveGrid(t *testing.T) {
	past := ptrTime(now.Add(-time.Hour))
	future := ptrTime(now.Add(time.Hour))

	statuses := []struct {
		raw    any
		active bool
	}{
		{true, true},
		{false, false},
		{"active", true},
		{"inactive", false},
	}
	ends := []struct {
		name   string
		end    *time.Time
		dateOK bool
	}{
		{"null", nil, true},
		{"past", past, false},
		{"future", future, true},
	}

	for _, st := range statuses {
		for _, e := range ends {
			t.Run(fmt.Sprintf("%v/%s", st.raw, e.name), func(t *testing.T) {
				sub := models.Subscription{
					Status:           models.ParseSubscriptionStatus(st.raw),
					CurrentPeriodEnd: e.end,
				}
				assert.Equal(t, st.active && e.dateOK, IsActive(sub, now))
			})
		}
	}
}

func TestIsActiveBoundaryIsInclusive(t *testing.T) {
	sub := models.Subscription{Status: models.StatusActive, CurrentPeriodEnd: ptrTime(now)}
	assert.True(t, IsActive(sub, now))
}

func TestHasActivePlanUsesLatestRow(t *testing.T) {
	older := models.Subscription{ID: "a", Status: models.StatusActive, CreatedAt: now.Add(-48 * time.Hour)}
	newer := models.Subscription{ID: "b", Status: models.StatusInactive, CreatedAt: now.Add(-time.Hour)}

	assert.False(t, HasActivePlan([]models.Subscription{older, newer}, now))
	assert.True(t, HasActivePlan([]models.Subscription{older}, now))
	assert.False(t, HasActivePlan(nil, now))

	latest, ok := Latest([]models.Subscription{newer, older})
	assert.True(t, ok)
	assert.Equal(t, "b", latest.ID)
}
