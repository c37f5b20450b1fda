// Package store resolves heterogeneous external store keys (Google Place
// ID, numeric string, integer) to a single internal integer store id (C1).
package store

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/pkg/errors"
)

const defaultDisplayName = "未命名店家"

// Resolver is the sole writer of Store rows (§9 "Store-key polymorphism").
type Resolver struct {
	db *sql.DB
}

// New builds a Resolver backed by the given connection pool.
func New(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// ValidateFormat reports whether raw matches one of the accepted store-key
// shapes, without touching the database.
func ValidateFormat(raw string) (bool, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, "empty store id"
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n > 0 {
			return true, ""
		}
		return false, "store id must be positive"
	}
	if isPlaceID(raw) {
		return true, ""
	}
	return false, "unrecognised store id shape"
}

// isPlaceID accepts the "ChIJ"/"ChlJ" prefixes per §4.1 and the Open
// Question in §9 about the lower-case-L "ChlJ" quirk; both are preserved
// unchanged, not collapsed.
func isPlaceID(raw string) bool {
	if len(raw) < 10 {
		return false
	}
	return strings.HasPrefix(raw, "ChIJ") || strings.HasPrefix(raw, "ChlJ")
}

// Resolve maps raw to an internal integer store id, creating a Store row on
// first sight of an unseen Place ID.
func (r *Resolver) Resolve(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 0 {
			return n, nil
		}
		return 0, errors.InvalidStoreID(raw)
	}

	if !isPlaceID(raw) {
		return 0, errors.InvalidStoreID(raw)
	}

	return r.resolvePlaceID(raw, defaultDisplayName)
}

// SafeResolve behaves like Resolve but returns fallbackID on any failure,
// for non-critical writes that must not fail the caller's request.
func (r *Resolver) SafeResolve(raw string, fallbackID int64) int64 {
	id, err := r.Resolve(raw)
	if err != nil {
		logger.Warn("store resolution fell back", map[string]interface{}{
			"raw":      raw,
			"fallback": fallbackID,
			"error":    err.Error(),
		})
		return fallbackID
	}
	return id
}

// StrictValidate hits the database; when allowCreate is false an unseen
// Place ID is rejected rather than created.
func (r *Resolver) StrictValidate(raw string, allowCreate bool) (bool, string) {
	raw = strings.TrimSpace(raw)
	if ok, reason := ValidateFormat(raw); !ok {
		return false, reason
	}

	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return true, ""
	}

	if allowCreate {
		return true, ""
	}

	var id int64
	err := r.db.QueryRow(`SELECT id FROM stores WHERE place_id = $1`, raw).Scan(&id)
	if err == sql.ErrNoRows {
		return false, "unknown place id, creation not allowed"
	}
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// resolvePlaceID runs the whole lookup-or-create within a short transaction
// so the unique index on place_id collapses concurrent first-writes of the
// same Place ID; on a unique violation it re-reads instead of failing.
func (r *Resolver) resolvePlaceID(placeID, displayName string) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM stores WHERE place_id = $1`, placeID).Scan(&id)
	if err == nil {
		return id, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return 0, errors.DatabaseError(err.Error())
	}

	err = tx.QueryRow(
		`INSERT INTO stores (display_name, partner_level, place_id) VALUES ($1, 0, $2) RETURNING id`,
		displayName, placeID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race: another writer inserted first. The failed
			// INSERT aborted this transaction, so re-read outside it.
			tx.Rollback()
			if rerr := r.db.QueryRow(`SELECT id FROM stores WHERE place_id = $1`, placeID).Scan(&id); rerr != nil {
				return 0, errors.DatabaseError(rerr.Error())
			}
			return id, nil
		}
		return 0, errors.DatabaseError(err.Error())
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.DatabaseError(err.Error())
	}

	logger.AuditLog("create", "store", "new store created from place id", "", "", "", map[string]interface{}{
		"store_id": id,
		"place_id": placeID,
	})

	return id, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// Get fetches a Store row by internal id.
func (r *Resolver) Get(storeID int64) (*models.Store, error) {
	s := &models.Store{}
	var placeID, reviewText, topDishes sql.NullString
	var lat, lon sql.NullFloat64

	err := r.db.QueryRow(
		`SELECT id, display_name, partner_level, place_id, latitude, longitude, review_text, top_dishes, created_at
		 FROM stores WHERE id = $1`, storeID,
	).Scan(&s.ID, &s.DisplayName, &s.PartnerLevel, &placeID, &lat, &lon, &reviewText, &topDishes, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("store")
	}
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}

	s.PlaceID = placeID.String
	s.ReviewText = reviewText.String
	s.TopDishes = topDishes.String
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lon.Valid {
		s.Longitude = &lon.Float64
	}

	return s, nil
}

// List returns every known store, partner and non-partner alike.
func (r *Resolver) List() ([]*models.Store, error) {
	rows, err := r.db.Query(
		`SELECT id, display_name, partner_level, COALESCE(place_id, ''), created_at FROM stores ORDER BY id`,
	)
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	defer rows.Close()

	var out []*models.Store
	for rows.Next() {
		s := &models.Store{}
		if err := rows.Scan(&s.ID, &s.DisplayName, &s.PartnerLevel, &s.PlaceID, &s.CreatedAt); err != nil {
			return nil, errors.DatabaseError(err.Error())
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListMenuItems returns every MenuItem, priced or not, across a store's
// non-catch-all menus, for the partner menu-listing endpoint (§6 "GET
// /menu/{store_id}"), which drops the unpriced ones itself.
func (r *Resolver) ListMenuItems(storeID int64) ([]*models.MenuItem, error) {
	rows, err := r.db.Query(
		`SELECT mi.id, mi.menu_id, mi.name_zh, mi.price_small, mi.price_large, COALESCE(mi.category, '')
		 FROM menu_items mi
		 JOIN menus m ON m.id = mi.menu_id
		 WHERE m.store_id = $1 AND NOT m.is_catch_all
		 ORDER BY mi.id`, storeID,
	)
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	defer rows.Close()

	var out []*models.MenuItem
	for rows.Next() {
		mi := &models.MenuItem{}
		var priceLarge sql.NullInt64
		if err := rows.Scan(&mi.ID, &mi.MenuID, &mi.NameZh, &mi.PriceSmall, &priceLarge, &mi.Category); err != nil {
			return nil, errors.DatabaseError(err.Error())
		}
		if priceLarge.Valid {
			v := int(priceLarge.Int64)
			mi.PriceLarge = &v
		}
		out = append(out, mi)
	}
	return out, rows.Err()
}

// HasMenu reports whether at least one priced MenuItem exists via the
// store's Menus (§6 check-partner-status's has_menu field).
func (r *Resolver) HasMenu(storeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (
			SELECT 1 FROM menu_items mi
			JOIN menus m ON m.id = mi.menu_id
			WHERE m.store_id = $1 AND mi.price_small > 0
		)`, storeID,
	).Scan(&exists)
	if err != nil {
		return false, errors.DatabaseError(err.Error())
	}
	return exists, nil
}
