package billing

import (
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var base = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func TestMergeDeduplicatesSharedReference(t *testing.T) {
	local := []models.PaymentRecord{{
		ID:                    7,
		StripePaymentIntentID: strPtr("pi_1"),
		Amount:                1000,
		Currency:              "eur",
		Status:                "succeeded",
		ReceiptURL:            strPtr("https://local/receipt"),
		Description:           strPtr("Season pass"),
		PaidAt:                timePtr(base),
	}}
	remote := []models.RemoteCharge{{
		ID:             "pi_1",
		Amount:         1000,
		Currency:       "eur",
		Status:         "refunded",
		RefundedAmount: 1000,
		ReceiptURL:     "https://stripe/receipt",
		Description:    "remote description",
		Created:        timePtr(base.Add(time.Minute)),
	}}

	merged := Merge(local, remote)
	require.Len(t, merged, 1)

	mp := merged[0]
	assert.Equal(t, "pi_1", mp.Key)
	assert.Equal(t, models.SourceBoth, mp.Source)
	assert.Equal(t, "Season pass", mp.Description)
	assert.Equal(t, "https://local/receipt", mp.ReceiptURL)
	assert.Equal(t, base, *mp.PaidAt)
	assert.Equal(t, "refunded", mp.Status)
	assert.Equal(t, int64(1000), mp.RefundedAmount)
	assert.Equal(t, models.RefundFull, mp.RefundState)
	require.NotNil(t, mp.LocalID)
	assert.Equal(t, int64(7), *mp.LocalID)
}

func TestMergeFillsGapsFromRemote(t *testing.T) {
	local := []models.PaymentRecord{{ID: 1, StripePaymentIntentID: strPtr("pi_2"), Amount: 500, Status: "processing"}}
	remote := []models.RemoteCharge{{
		ID: "pi_2", Amount: 500, Currency: "usd", Status: "succeeded",
		ReceiptURL: "https://stripe/r2", Description: "Team fee", Created: timePtr(base),
	}}

	merged := Merge(local, remote)
	require.Len(t, merged, 1)
	assert.Equal(t, "usd", merged[0].Currency)
	assert.Equal(t, "https://stripe/r2", merged[0].ReceiptURL)
	assert.Equal(t, "Team fee", merged[0].Description)
	assert.Equal(t, "succeeded", merged[0].Status)
	assert.Equal(t, base, *merged[0].PaidAt)
}

func TestMergeKeysAndOrdering(t *testing.T) {
	local := []models.PaymentRecord{
		{ID: 3, Amount: 100, Status: "succeeded", PaidAt: timePtr(base.Add(-time.Hour))},
		{ID: 4, Amount: 200, Status: "succeeded"},
	}
	remote := []models.RemoteCharge{
		{ID: "pi_new", Amount: 300, Status: "succeeded", Created: timePtr(base)},
		{ID: "pi_new", Amount: 300, Status: "succeeded", Created: timePtr(base)},
	}

	merged := Merge(local, remote)
	require.Len(t, merged, 3)
	assert.Equal(t, "pi_new", merged[0].Key)
	assert.Equal(t, models.SourceRemote, merged[0].Source)
	assert.Equal(t, "db:3", merged[1].Key)
	assert.Equal(t, "db:4", merged[2].Key, "missing paid_at sorts last")
}

func TestClassifyRefund(t *testing.T) {
	assert.Equal(t, models.RefundFull, ClassifyRefund("succeeded", 1000, 1000))
	assert.Equal(t, models.RefundPartial, ClassifyRefund("succeeded", 1000, 400))
	assert.Equal(t, models.RefundNone, ClassifyRefund("succeeded", 1000, 0))
	assert.Equal(t, models.RefundFull, ClassifyRefund("refunded", 1000, 0))
	assert.Equal(t, models.RefundNone, ClassifyRefund("succeeded", 0, 0))
}

func TestFetchBound(t *testing.T) {
	assert.Equal(t, 30, FetchBound(50, 0, 10))
	assert.Equal(t, 50, FetchBound(50, 40, 10))
	assert.Equal(t, 90, FetchBound(0, 60, 10))
}
