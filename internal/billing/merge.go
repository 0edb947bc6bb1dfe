// Package billing сводит локальный журнал платежей с историей платежного процессора.
package billing

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
)

// StatusRefunded статус полного возврата на стороне процессора.
const StatusRefunded = "refunded"

// fetchSlack сколько записей берем сверх текущей страницы.
const fetchSlack = 20

// FetchBound — сколько строк запрашивать у каждого источника: min(maxFetch, offset+limit+20).
func FetchBound(maxFetch, offset, limit int) int {
	bound := offset + limit + fetchSlack
	if maxFetch > 0 && bound > maxFetch {
		return maxFetch
	}
	return bound
}

// ClassifyRefund выводит статус возврата. Статус refunded у процессора означает полный возврат независимо от сумм.
func ClassifyRefund(status string, amount, refunded int64) models.RefundState {
	switch {
	case strings.EqualFold(status, StatusRefunded):
		return models.RefundFull
	case refunded > 0 && refunded >= amount:
		return models.RefundFull
	case refunded > 0 && refunded < amount:
		return models.RefundPartial
	default:
		return models.RefundNone
	}
}

// LocalKey ключ локальной записи: внешний идентификатор платежа или db:<id>.
func LocalKey(rec models.PaymentRecord) string {
	if rec.StripePaymentIntentID != nil && *rec.StripePaymentIntentID != "" {
		return *rec.StripePaymentIntentID
	}
	return "db:" + strconv.FormatInt(rec.ID, 10)
}

// Merge дедуплицирует записи по общему ключу и сортирует по paid_at по убыванию.
// При совпадении ключа paid_at/receipt/description берутся из локальной записи, если заполнены,
// а status/refunded_amount всегда из процессора.
func Merge(local []models.PaymentRecord, remote []models.RemoteCharge) []models.MergedPayment {
	byKey := make(map[string]*models.MergedPayment, len(local)+len(remote))
	order := make([]string, 0, len(local)+len(remote))

	for _, rec := range local {
		key := LocalKey(rec)
		if _, seen := byKey[key]; seen {
			continue
		}
		byKey[key] = fromLocal(key, rec)
		order = append(order, key)
	}

	for _, ch := range remote {
		if ch.ID == "" {
			continue
		}
		if existing, ok := byKey[ch.ID]; ok {
			if existing.Source == models.SourceLocal {
				overlayRemote(existing, ch)
			}
			continue
		}
		byKey[ch.ID] = fromRemote(ch)
		order = append(order, ch.ID)
	}

	out := make([]models.MergedPayment, 0, len(order))
	for _, key := range order {
		mp := byKey[key]
		mp.RefundState = ClassifyRefund(mp.Status, mp.Amount, mp.RefundedAmount)
		out = append(out, *mp)
	}
	Sort(out)
	return out
}

// Sort упорядочивает по paid_at по убыванию; записи без даты идут как epoch 0, то есть в конце.
func Sort(payments []models.MergedPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		ti, tj := paidAtUnix(payments[i].PaidAt), paidAtUnix(payments[j].PaidAt)
		if ti != tj {
			return ti > tj
		}
		return payments[i].Key < payments[j].Key
	})
}

func paidAtUnix(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

func fromLocal(key string, rec models.PaymentRecord) *models.MergedPayment {
	id := rec.ID
	mp := &models.MergedPayment{
		Key:            key,
		LocalID:        &id,
		Amount:         rec.Amount,
		Currency:       rec.Currency,
		Status:         rec.Status,
		RefundedAmount: rec.RefundedAmount,
		ReceiptURL:     deref(rec.ReceiptURL),
		Description:    deref(rec.Description),
		PaidAt:         rec.PaidAt,
		Source:         models.SourceLocal,
	}
	if rec.StripePaymentIntentID != nil {
		mp.PaymentIntentID = *rec.StripePaymentIntentID
	}
	if rec.SubscriptionID != nil {
		mp.SubscriptionID = *rec.SubscriptionID
	}
	return mp
}

func fromRemote(ch models.RemoteCharge) *models.MergedPayment {
	return &models.MergedPayment{
		Key:             ch.ID,
		PaymentIntentID: ch.ID,
		Amount:          ch.Amount,
		Currency:        ch.Currency,
		Status:          ch.Status,
		RefundedAmount:  ch.RefundedAmount,
		ReceiptURL:      ch.ReceiptURL,
		Description:     ch.Description,
		PaidAt:          ch.Created,
		Source:          models.SourceRemote,
	}
}

func overlayRemote(mp *models.MergedPayment, ch models.RemoteCharge) {
	mp.Source = models.SourceBoth
	mp.Status = ch.Status
	mp.RefundedAmount = ch.RefundedAmount

	if mp.Amount == 0 {
		mp.Amount = ch.Amount
	}
	if mp.Currency == "" {
		mp.Currency = ch.Currency
	}
	if mp.PaidAt == nil {
		mp.PaidAt = ch.Created
	}
	if mp.ReceiptURL == "" {
		mp.ReceiptURL = ch.ReceiptURL
	}
	if mp.Description == "" {
		mp.Description = ch.Description
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
