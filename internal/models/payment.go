package models

import "time"

// Customer связывает локального пользователя с клиентом в Stripe.
type Customer struct {
	UserID           string    `db:"user_id" json:"user_id"`
	StripeCustomerID string    `db:"stripe_customer_id" json:"stripe_customer_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentRecord — строка локального журнала платежей (наполняется из вебхуков Stripe).
// Суммы в минимальных единицах валюты.
type PaymentRecord struct {
	ID                    int64      `db:"id" json:"id"`
	UserID                string     `db:"user_id" json:"user_id"`
	SubscriptionID        *string    `db:"subscription_id" json:"subscription_id,omitempty"`
	StripePaymentIntentID *string    `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	Amount                int64      `db:"amount" json:"amount"`
	Currency              string     `db:"currency" json:"currency"`
	Status                string     `db:"status" json:"status"`
	RefundedAmount        int64      `db:"refunded_amount" json:"refunded_amount"`
	ReceiptURL            *string    `db:"receipt_url" json:"receipt_url,omitempty"`
	Description           *string    `db:"description" json:"description,omitempty"`
	PaidAt                *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// RemoteCharge — проекция PaymentIntent и его последнего charge из Stripe. Не сохраняется.
type RemoteCharge struct {
	ID             string // payment intent id
	Amount         int64
	Currency       string
	Status         string
	RefundedAmount int64
	ReceiptURL     string
	Description    string
	Created        *time.Time
}

// RefundState производный статус возврата.
type RefundState string

const (
	RefundNone    RefundState = "none"
	RefundPartial RefundState = "partial"
	RefundFull    RefundState = "full"
)

// PaymentSource откуда пришла запись истории.
type PaymentSource string

const (
	SourceLocal  PaymentSource = "local"
	SourceRemote PaymentSource = "remote"
	SourceBoth   PaymentSource = "both"
)

// MergedPayment — сведенная запись истории платежей; существует только в памяти.
type MergedPayment struct {
	Key             string        `json:"id"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	LocalID         *int64        `json:"local_id,omitempty"`
	SubscriptionID  string        `json:"subscription_id,omitempty"`
	Amount          int64         `json:"amount"`
	Currency        string        `json:"currency"`
	Status          string        `json:"status"`
	RefundedAmount  int64         `json:"refunded_amount"`
	RefundState     RefundState   `json:"refund_state"`
	ReceiptURL      string        `json:"receipt_url,omitempty"`
	Description     string        `json:"description,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	Source          PaymentSource `json:"source"`
}
