package billing

import "github.com/Dhoini/Entitlement-service/internal/models"

// Page одна страница сведенной истории платежей.
type Page struct {
	Payments []models.MergedPayment `json:"payments"`
	Total    int                    `json:"total"`
	Offset   int                    `json:"offset"`
	Limit    int                    `json:"limit"`
	HasPrev  bool                   `json:"has_prev"`
	HasNext  bool                   `json:"has_next"`
}

// Paginate режет [offset, offset+limit) из уже ограниченного сведенного набора.
// Total — размер этого набора, а не глобальное количество платежей.
func Paginate(all []models.MergedPayment, offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	total := len(all)
	start := min(offset, total)
	end := min(start+limit, total)

	payments := make([]models.MergedPayment, end-start)
	copy(payments, all[start:end])

	return Page{
		Payments: payments,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasPrev:  offset > 0,
		HasNext:  offset+len(payments) < total,
	}
}

// PageOffset переводит номер страницы (с единицы) в смещение.
func PageOffset(page, size int) int {
	if page < 1 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	return (page - 1) * size
}
