// Package entitlement содержит чистые решения о доступе: активна ли подписка и какие места пора продлевать.
// Функции не ходят в сеть и принимают текущее время параметром.
package entitlement

import (
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
)

// StatusOK сообщает, что флаг статуса подписки разрешает доступ.
func StatusOK(sub models.Subscription) bool {
	return sub.Status == models.StatusActive
}

// IsActive — подписка дает доступ: статус активен и период не истек.
// Подписка без даты окончания считается бессрочной.
func IsActive(sub models.Subscription, now time.Time) bool {
	if !StatusOK(sub) {
		return false
	}
	return sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Before(now)
}

// Latest возвращает последнюю по created_at подписку. ok=false для пустого списка.
func Latest(subs []models.Subscription) (models.Subscription, bool) {
	if len(subs) == 0 {
		return models.Subscription{}, false
	}
	latest := subs[0]
	for _, s := range subs[1:] {
		if s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	return latest, true
}

// HasActivePlan решает отображение "есть активный план" по самой свежей подписке.
// Подсчет мест, в отличие от этого, учитывает все строки.
func HasActivePlan(subs []models.Subscription, now time.Time) bool {
	latest, ok := Latest(subs)
	if !ok {
		return false
	}
	return IsActive(latest, now)
}
