// Package orders implements the Order Writer (C4): it transactionally
// persists an Order and its OrderItems, creating synthetic MenuItem rows
// for OCR-sourced or ad-hoc items so the schema's NOT-NULL menu_item_id
// foreign key always holds (§4.4).
package orders

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/ordering-helper/backend/cart"
	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/pkg/errors"
)

// Writer owns the Order/OrderItem write path.
type Writer struct {
	db *sql.DB
}

// New builds a Writer.
func New(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// CreatePending inserts a pending Order with total_amount 0, for the
// short-request submission path (§4.8 step "writes a pending Order").
func (w *Writer) CreatePending(userID, storeID int64) (int64, error) {
	var orderID int64
	err := w.db.QueryRow(
		`INSERT INTO orders (user_id, store_id, status, total_amount) VALUES ($1, $2, $3, 0) RETURNING id`,
		userID, storeID, models.OrderStatusPending,
	).Scan(&orderID)
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return orderID, nil
}

// WriteItems persists OrderItems for an already-created pending order and
// updates its total_amount (§4.4 steps 2-3). The coordinator's Submit calls
// it once per order, after Normalize (C3) and CreatePending, in the short
// request before the background task is scheduled.
func (w *Writer) WriteItems(orderID, storeID int64, items []cart.Item) error {
	if len(items) == 0 {
		return errors.ValidationError("cart has no valid items")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.DatabaseError(err.Error())
	}
	defer tx.Rollback()

	total := 0
	for _, item := range items {
		menuItemID, err := w.resolveMenuItemID(tx, storeID, item)
		if err != nil {
			return err
		}

		subtotal := item.Quantity * item.Price
		_, err = tx.Exec(
			`INSERT INTO order_items (order_id, menu_item_id, quantity_small, subtotal, original_name, translated_name)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, menuItemID, item.Quantity, subtotal, item.Original, item.Translated,
		)
		if err != nil {
			return errors.DataConflict(err.Error())
		}
		total += subtotal
	}

	if _, err := tx.Exec(`UPDATE orders SET total_amount = $1 WHERE id = $2`, total, orderID); err != nil {
		return errors.DatabaseError(err.Error())
	}

	return tx.Commit()
}

// resolveMenuItemID implements §4.4 step 2: use an existing MenuItem id
// when given, recover the OCRMenuItem behind a temp id and snapshot it into
// a synthetic MenuItem, or create a bare synthetic MenuItem otherwise.
func (w *Writer) resolveMenuItemID(tx *sql.Tx, storeID int64, item cart.Item) (int64, error) {
	if id, ok := parseIntID(item.MenuItemID); ok {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM menu_items WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, errors.DatabaseError(err.Error())
		}
		if exists {
			return id, nil
		}
	}

	if ocrItemID, ok := parseTempID(item.MenuItemID); ok {
		return w.synthesizeFromOCR(tx, storeID, ocrItemID)
	}

	return w.synthesizeAdHoc(tx, storeID, item.Original, item.Price)
}

// parseIntID accepts a bare positive-integer menu_item_id.
func parseIntID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseTempID recovers the originating OCRMenuItem id from a temp-id string
// of the form "ocr_{ocrMenuItemId}" (§GLOSSARY "Temp id"). The ingestor
// (C2) assigns this id per recognised item at persist time, so it always
// names a single ocr_menu_items row, never the parent ocr_menus row.
func parseTempID(raw string) (int64, bool) {
	if strings.HasPrefix(raw, "ocr_") {
		n, err := strconv.ParseInt(strings.TrimPrefix(raw, "ocr_"), 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// catchAllMenuID returns the per-store catch-all Menu, creating it lazily
// (§GLOSSARY "Catch-all Menu").
func (w *Writer) catchAllMenuID(tx *sql.Tx, storeID int64) (int64, error) {
	var menuID int64
	err := tx.QueryRow(`SELECT id FROM menus WHERE store_id = $1 AND is_catch_all`, storeID).Scan(&menuID)
	if err == nil {
		return menuID, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.DatabaseError(err.Error())
	}

	err = tx.QueryRow(
		`INSERT INTO menus (store_id, version, is_catch_all) VALUES ($1, 1, TRUE) RETURNING id`,
		storeID,
	).Scan(&menuID)
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return menuID, nil
}

// synthesizeFromOCR creates a synthetic MenuItem snapshotting an
// OCRMenuItem's Chinese name and price.
func (w *Writer) synthesizeFromOCR(tx *sql.Tx, storeID, ocrItemID int64) (int64, error) {
	var name string
	var priceSmall int
	err := tx.QueryRow(`SELECT item_name, price_small FROM ocr_menu_items WHERE id = $1`, ocrItemID).Scan(&name, &priceSmall)
	if err == sql.ErrNoRows {
		return 0, errors.DataConflict(fmt.Sprintf("ocr menu item %d not found", ocrItemID))
	}
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return w.synthesizeAdHoc(tx, storeID, name, priceSmall)
}

// synthesizeAdHoc creates a synthetic MenuItem under the store's catch-all
// Menu for a bare cart item with no existing menu_item_id.
func (w *Writer) synthesizeAdHoc(tx *sql.Tx, storeID int64, nameZh string, price int) (int64, error) {
	menuID, err := w.catchAllMenuID(tx, storeID)
	if err != nil {
		return 0, err
	}

	var itemID int64
	err = tx.QueryRow(
		`INSERT INTO menu_items (menu_id, name_zh, price_small) VALUES ($1, $2, $3) RETURNING id`,
		menuID, nameZh, price,
	).Scan(&itemID)
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return itemID, nil
}

// LoadCart reconstructs the canonical cart from an Order's OrderItems,
// using the names and prices already snapshotted at write time (§4.8 step
// 2: "names already snapshotted").
func (w *Writer) LoadCart(orderID int64) ([]cart.Item, error) {
	rows, err := w.db.Query(
		`SELECT menu_item_id, quantity_small, subtotal, original_name, translated_name
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var menuItemID int64
		var qty, subtotal int
		var original, translated string
		if err := rows.Scan(&menuItemID, &qty, &subtotal, &original, &translated); err != nil {
			return nil, errors.DatabaseError(err.Error())
		}
		price := 0
		if qty > 0 {
			price = subtotal / qty
		}
		items = append(items, cart.Item{
			Original:   original,
			Translated: translated,
			Quantity:   qty,
			Price:      price,
			MenuItemID: strconv.FormatInt(menuItemID, 10),
		})
	}
	return items, rows.Err()
}

// Get fetches an Order row by id.
func (w *Writer) Get(orderID int64) (*models.Order, error) {
	o := &models.Order{ID: orderID}
	err := w.db.QueryRow(
		`SELECT user_id, store_id, order_time, total_amount, status FROM orders WHERE id = $1`, orderID,
	).Scan(&o.UserID, &o.StoreID, &o.OrderTime, &o.TotalAmount, &o.Status)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	return o, nil
}

// CompareAndSetStatus performs the idempotency-critical status transition
// (§5: "Concurrent background invocations... made idempotent by a
// compare-and-set"). It reports false without error if the order was
// already past `from`.
func (w *Writer) CompareAndSetStatus(orderID int64, from, to string) (bool, error) {
	res, err := w.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, to, orderID, from)
	if err != nil {
		return false, errors.DatabaseError(err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError(err.Error())
	}
	return n == 1, nil
}

// SetStatus forces a terminal status transition (completed/failed), used at
// the end of the pipeline regardless of the previous state, since only the
// pipeline itself holds "processing" at that point.
func (w *Writer) SetStatus(orderID int64, status string) error {
	_, err := w.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return errors.DatabaseError(err.Error())
	}
	return nil
}

// SetStatusTx is SetStatus run against a caller-owned transaction, so the
// completed transition can be linearised with the OrderSummary write that
// makes that status meaningful (§5: "single transaction").
func (w *Writer) SetStatusTx(tx *sql.Tx, orderID int64, status string) error {
	_, err := tx.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return errors.DatabaseError(err.Error())
	}
	return nil
}

// BeginTx exposes the underlying connection pool's transaction start so
// callers (the pipeline coordinator) can linearise the OrderSummary write
// with other final steps without this package knowing about summaries.
func (w *Writer) BeginTx() (*sql.Tx, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	return tx, nil
}
