package kafka

import "time"

// Топики событий сервиса
const (
	TopicProfileCreated    = "profile.created"
	TopicProfileOrphaned   = "profile.orphaned"
	TopicOfferReplaced     = "offer.replaced"
	TopicOfferInconsistent = "offer.inconsistent"
)

// Topics все топики, которые должны существовать до старта продюсера.
var Topics = []string{
	TopicProfileCreated,
	TopicProfileOrphaned,
	TopicOfferReplaced,
	TopicOfferInconsistent,
}

// RedemptionMethod чем было оплачено место
type RedemptionMethod string

const (
	MethodSeat         RedemptionMethod = "seat"
	MethodAccessCode   RedemptionMethod = "access_code"
	MethodCodeFallback RedemptionMethod = "code_fallback"
	MethodReconciled   RedemptionMethod = "reconciled"
)

// ProfileCreatedEvent профиль создан и место списано
type ProfileCreatedEvent struct {
	ProfileID  string           `json:"profile_id"`
	UserID     string           `json:"user_id"`
	Method     RedemptionMethod `json:"method"`
	EndsAt     *time.Time       `json:"ends_at,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ProfileOrphanedEvent профиль так и не получил место
type ProfileOrphanedEvent struct {
	ProfileID  string    `json:"profile_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OfferReplacedEvent цена заменена новой
type OfferReplacedEvent struct {
	ProductID    string    `json:"product_id"`
	OldPriceID   string    `json:"old_price_id"`
	NewPriceID   string    `json:"new_price_id"`
	DefaultMoved bool      `json:"default_moved"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// OfferInconsistentEvent новая цена создана, старая осталась активной
type OfferInconsistentEvent struct {
	ProductID  string    `json:"product_id"`
	OldPriceID string    `json:"old_price_id"`
	NewPriceID string    `json:"new_price_id"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}
