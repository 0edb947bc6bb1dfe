package entitlement

import (
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
)

// RenewalReason почему место попало в список продления
type RenewalReason string

const (
	ReasonInactive RenewalReason = "inactive"
	ReasonExpiring RenewalReason = "expiring"
)

// RenewalFlow ветка интерфейса продления
type RenewalFlow string

const (
	FlowNone   RenewalFlow = "none"
	FlowSingle RenewalFlow = "single" // прямой checkout
	FlowMulti  RenewalFlow = "multi"  // выбор профилей и плана
)

// RenewableSeat — подписка, места которой пора продлевать.
type RenewableSeat struct {
	SubscriptionID   string        `json:"subscription_id"`
	PlanID           string        `json:"plan_id"`
	Seats            int           `json:"seats"`
	CurrentPeriodEnd *time.Time    `json:"current_period_end,omitempty"`
	Reason           RenewalReason `json:"reason"`
}

// IsRenewable: статус неактивен либо период заканчивается не позже now+window.
// Бессрочная активная подписка продления не требует.
func IsRenewable(sub models.Subscription, now time.Time, window time.Duration) bool {
	_, ok := renewalReason(sub, now, window)
	return ok
}

func renewalReason(sub models.Subscription, now time.Time, window time.Duration) (RenewalReason, bool) {
	if !StatusOK(sub) {
		return ReasonInactive, true
	}
	if sub.CurrentPeriodEnd != nil && !sub.CurrentPeriodEnd.After(now.Add(window)) {
		return ReasonExpiring, true
	}
	return "", false
}

// WindowFromDays переводит горизонт в днях в длительность. Отрицательное значение считается нулем.
func WindowFromDays(days int) time.Duration {
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// RenewableSeatList возвращает продлеваемые подписки в исходном порядке.
func RenewableSeatList(subs []models.Subscription, now time.Time, window time.Duration) []RenewableSeat {
	out := make([]RenewableSeat, 0, len(subs))
	for _, s := range subs {
		reason, ok := renewalReason(s, now, window)
		if !ok {
			continue
		}
		out = append(out, RenewableSeat{
			SubscriptionID:   s.ID,
			PlanID:           s.PlanID,
			Seats:            s.SeatCount(),
			CurrentPeriodEnd: s.CurrentPeriodEnd,
			Reason:           reason,
		})
	}
	return out
}

// RenewableSeatCount суммирует места по всем продлеваемым подпискам.
func RenewableSeatCount(subs []models.Subscription, now time.Time, window time.Duration) int {
	total := 0
	for _, s := range subs {
		if IsRenewable(s, now, window) {
			total += s.SeatCount()
		}
	}
	return total
}

// SelectRenewalFlow выбирает ветку продления: ровно одно место — прямой checkout.
func SelectRenewalFlow(count int) RenewalFlow {
	switch {
	case count <= 0:
		return FlowNone
	case count == 1:
		return FlowSingle
	default:
		return FlowMulti
	}
}
