package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SubscriptionStatus — закрытое перечисление статуса подписки.
// В хранилище статус лежит то boolean, то текстом; разбираем его один раз на границе доступа к данным.
type SubscriptionStatus int

const (
	StatusInactive SubscriptionStatus = iota
	StatusActive
)

// ParseSubscriptionStatus приводит сырое значение флага к перечислению:
// true -> Active, строка "active" в любом регистре -> Active, всё остальное -> Inactive.
func ParseSubscriptionStatus(raw any) SubscriptionStatus {
	switch v := raw.(type) {
	case nil:
		return StatusInactive
	case SubscriptionStatus:
		return v
	case bool:
		if v {
			return StatusActive
		}
		return StatusInactive
	case string:
		return parseStatusText(v)
	case []byte:
		return parseStatusText(string(v))
	default:
		return parseStatusText(fmt.Sprint(v))
	}
}

func parseStatusText(s string) SubscriptionStatus {
	if strings.EqualFold(strings.TrimSpace(s), "active") {
		return StatusActive
	}
	return StatusInactive
}

// String реализует fmt.Stringer
func (s SubscriptionStatus) String() string {
	if s == StatusActive {
		return "active"
	}
	return "inactive"
}

// Scan реализует sql.Scanner: драйвер отдает bool для boolean-колонки и string/[]byte для текстовой.
func (s *SubscriptionStatus) Scan(src any) error {
	*s = ParseSubscriptionStatus(src)
	return nil
}

// Value реализует driver.Valuer
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

// MarshalJSON пишет статус строкой
func (s SubscriptionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON принимает и boolean, и строку
func (s *SubscriptionStatus) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSubscriptionStatus(raw)
	return nil
}

// Subscription представляет запись о подписке пользователя (купленные места или бесплатный код).
type Subscription struct {
	ID               string             `db:"id" json:"id"`
	UserID           string             `db:"user_id" json:"user_id"`
	PlanID           string             `db:"plan_id" json:"plan_id"`
	AccessCode       *string            `db:"access_code" json:"access_code,omitempty"`
	Status           SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodEnd *time.Time         `db:"current_period_end" json:"current_period_end,omitempty"` // nil — бессрочная
	Seats            int                `db:"seats" json:"seats"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
}

// SeatCount возвращает количество мест; пустое или неположительное значение считается за одно место.
func (s Subscription) SeatCount() int {
	if s.Seats <= 0 {
		return 1
	}
	return s.Seats
}
