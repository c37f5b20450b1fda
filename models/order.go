package models

import "time"

// Order status values. Transitions form a total order: pending ->
// processing -> {completed | failed}; terminal states never re-open (§5).
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
)

// Order is created pending by submission and mutated only by the
// background task (C8).
type Order struct {
	ID          int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	StoreID     int64     `json:"store_id"`
	OrderTime   time.Time `json:"order_time"`
	TotalAmount int       `json:"total_amount"`
	Status      string    `json:"status"`
}

// IsTerminal reports whether the order's status will never change again.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusFailed
}

// IsProcessing reports whether the order is still in flight (§6 GET
// /orders/status's "processing" field).
func (o *Order) IsProcessing() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderItem belongs to an Order. OriginalName/TranslatedName are
// snapshotted at write time so later display never depends on mutable
// MenuItem rows (§3).
type OrderItem struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	MenuItemID     int64  `json:"menu_item_id"`
	QuantitySmall  int    `json:"quantity"`
	Subtotal       int    `json:"subtotal"`
	OriginalName   string `json:"original_name"`
	TranslatedName string `json:"translated_name"`
}

// OrderSummary is written once, inside the pipeline's final transaction
// (§3). Insert-only; re-rendering requires a new Order.
type OrderSummary struct {
	ID                  int64     `json:"id"`
	OrderID             int64     `json:"order_id"`
	ChineseSummary      string    `json:"chinese_summary"`
	UserLanguageSummary string    `json:"user_language_summary"`
	UserLanguage        string    `json:"user_language"`
	TotalAmount         int       `json:"total_amount"`
	VoiceURL            string    `json:"voice_url,omitempty"`
	VoiceDurationMs     int       `json:"voice_duration_ms,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
