// Package ocr implements the Menu OCR Ingestor (C2): it compresses a menu
// photograph, invokes the vision model with a structured-JSON contract, and
// persists an OCRMenu and its rows, each row carrying the ingestion-time
// translated name in translated_desc. No separate translation rows are written.
package ocr

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"golang.org/x/image/draw"

	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/pkg/errors"
)

const (
	maxLongEdge = 1024
	jpegQuality = 85
)

// VisionItem is one row of the vision model's structured-JSON response
// (§6 "Vision model contract").
type VisionItem struct {
	OriginalName   string `json:"original_name"`
	TranslatedName string `json:"translated_name"`
	Price          int    `json:"price"`
	Description    string `json:"description"`
	Category       string `json:"category"`
}

// VisionResponse is the vision model's single structured-JSON object.
type VisionResponse struct {
	Success         bool         `json:"success"`
	MenuItems       []VisionItem `json:"menu_items"`
	StoreInfo       StoreInfo    `json:"store_info"`
	ProcessingNotes string       `json:"processing_notes"`
}

// StoreInfo is the optional store metadata the vision model may recognise.
type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// VisionClient abstracts the external vision backend so the ingestor can be
// tested without a live model.
type VisionClient interface {
	Recognise(ctx context.Context, jpegBytes []byte, targetLang string) (*VisionResponse, error)
}

// Item is one recognised menu entry returned to the caller, in full mode
// (§4.2 step 7).
type Item struct {
	TempID         string `json:"temp_id"`
	OriginalName   string `json:"original_name"`
	TranslatedName string `json:"translated_name"`
	PriceSmall     int    `json:"price_small"`
	PriceLarge     int    `json:"price_large"`
	ProcessingID   int64  `json:"processing_id"`
}

// SimpleItem is the leaner shape returned in simple mode.
type SimpleItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ingestor wires the vision client, DB, and user resolution together.
type Ingestor struct {
	db     *sql.DB
	vision VisionClient
	timeout time.Duration
}

// New builds an Ingestor.
func New(db *sql.DB, vision VisionClient, cfg config.VisionConfig) *Ingestor {
	return &Ingestor{db: db, vision: vision, timeout: cfg.Timeout}
}

// Downscale re-encodes an arbitrary PNG/JPEG/GIF payload to JPEG quality 85,
// proportionally downscaling if the longer edge exceeds 1024px (§4.2 step 1).
func Downscale(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.OcrUnrecognised("image could not be decoded")
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longEdge := w
	if h > longEdge {
		longEdge = h
	}

	out := img
	if longEdge > maxLongEdge {
		scale := float64(maxLongEdge) / float64(longEdge)
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		// x/image/draw has no literal Lanczos kernel; CatmullRom is its
		// closest bicubic-class interpolator.
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.OcrBackendError(err)
	}
	return buf.Bytes(), nil
}

// resolveUser loads the User row for lineUserID, or creates a transient
// guest user if lineUserID is empty (§4.2 step 2).
func (ing *Ingestor) resolveUser(lineUserID string) (int64, error) {
	if lineUserID == "" {
		lineUserID = fmt.Sprintf("temp_guest_%d", time.Now().UnixMilli())
		var id int64
		err := ing.db.QueryRow(
			`INSERT INTO users (line_user_id, status) VALUES ($1, $2) RETURNING id`,
			lineUserID, models.UserStatusGuest,
		).Scan(&id)
		if err != nil {
			return 0, errors.DatabaseError(err.Error())
		}
		return id, nil
	}

	var id int64
	err := ing.db.QueryRow(`SELECT id FROM users WHERE line_user_id = $1`, lineUserID).Scan(&id)
	if err == sql.ErrNoRows {
		err = ing.db.QueryRow(
			`INSERT INTO users (line_user_id, status) VALUES ($1, $2) RETURNING id`,
			lineUserID, models.UserStatusActive,
		).Scan(&id)
		if err != nil {
			return 0, errors.DatabaseError(err.Error())
		}
		return id, nil
	}
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return id, nil
}

// Ingest runs the full §4.2 pipeline and returns items in full mode.
func (ing *Ingestor) Ingest(ctx context.Context, imageBytes []byte, storeID int64, lineUserID, targetLang string) ([]Item, error) {
	jpegBytes, err := Downscale(imageBytes)
	if err != nil {
		return nil, err
	}

	userID, err := ing.resolveUser(lineUserID)
	if err != nil {
		return nil, err
	}

	visionCtx, cancel := context.WithTimeout(ctx, ing.timeout)
	defer cancel()

	resp, err := ing.vision.Recognise(visionCtx, jpegBytes, targetLang)
	if err != nil {
		if visionCtx.Err() == context.DeadlineExceeded {
			return nil, errors.OcrTimeout()
		}
		return nil, errors.OcrBackendError(err)
	}

	if !resp.Success || len(resp.MenuItems) == 0 {
		return nil, errors.OcrUnrecognised(resp.ProcessingNotes)
	}

	for i := range resp.MenuItems {
		coerceNullable(&resp.MenuItems[i])
	}

	itemIDs, err := ing.persist(userID, storeID, resp)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(resp.MenuItems))
	for i, mi := range resp.MenuItems {
		items[i] = Item{
			TempID:         fmt.Sprintf("ocr_%d", itemIDs[i]),
			OriginalName:   mi.OriginalName,
			TranslatedName: mi.TranslatedName,
			PriceSmall:     mi.Price,
			PriceLarge:     mi.Price,
			ProcessingID:   itemIDs[i],
		}
	}
	return items, nil
}

// IngestSimple behaves like Ingest but returns the leaner simple-mode shape.
func (ing *Ingestor) IngestSimple(ctx context.Context, imageBytes []byte, storeID int64, lineUserID, targetLang string) ([]SimpleItem, error) {
	items, err := ing.Ingest(ctx, imageBytes, storeID, lineUserID, targetLang)
	if err != nil {
		return nil, err
	}
	out := make([]SimpleItem, len(items))
	for i, it := range items {
		out[i] = SimpleItem{ID: it.TempID, Name: it.OriginalName}
	}
	return out, nil
}

// coerceNullable defends against the vision model emitting JSON `null` for
// a nullable string field, which json.Unmarshal would otherwise leave as
// the Go zero value anyway, but a nil *string variant would not (§4.2 step 5).
func coerceNullable(item *VisionItem) {
	if item.OriginalName == "" {
		item.OriginalName = ""
	}
	if item.TranslatedName == "" {
		item.TranslatedName = ""
	}
	if item.Description == "" {
		item.Description = ""
	}
	if item.Category == "" {
		item.Category = ""
	}
}

// persist writes the OCRMenu and its items (translated name stored in
// translated_desc) in one transaction (§4.2 step 6), returning the ocr_menu_items.id assigned to
// each entry in resp.MenuItems, in the same order, so callers can build
// per-item temp ids instead of sharing the parent ocr_menus.id.
func (ing *Ingestor) persist(userID int64, storeID int64, resp *VisionResponse) ([]int64, error) {
	tx, err := ing.db.Begin()
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	defer tx.Rollback()

	storeName := resp.StoreInfo.Name

	var ocrMenuID int64
	var storeIDArg interface{}
	if storeID > 0 {
		storeIDArg = storeID
	}
	err = tx.QueryRow(
		`INSERT INTO ocr_menus (user_id, store_id, captured_store_name) VALUES ($1, $2, $3) RETURNING id`,
		userID, storeIDArg, storeName,
	).Scan(&ocrMenuID)
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}

	itemIDs := make([]int64, len(resp.MenuItems))
	for i, mi := range resp.MenuItems {
		var itemID int64
		err = tx.QueryRow(
			`INSERT INTO ocr_menu_items (ocr_menu_id, item_name, price_small, price_big, translated_desc)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			ocrMenuID, mi.OriginalName, mi.Price, mi.Price, mi.TranslatedName,
		).Scan(&itemID)
		if err != nil {
			return nil, errors.DatabaseError(err.Error())
		}
		itemIDs[i] = itemID
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.DatabaseError(err.Error())
	}

	logger.AuditLog("create", "ocr_menu", "menu photo ingested", "", "", "", map[string]interface{}{
		"ocr_menu_id": ocrMenuID,
		"item_count":  len(resp.MenuItems),
	})

	return itemIDs, nil
}

// ParseVisionJSON is exposed for callers that receive the vision model's
// raw text response and must parse it themselves (§4.2 step 4: JSON parse
// errors become OcrJsonInvalid, not a panic).
func ParseVisionJSON(r io.Reader) (*VisionResponse, error) {
	var resp VisionResponse
	dec := json.NewDecoder(r)
	if err := dec.Decode(&resp); err != nil {
		return nil, errors.OcrJSONInvalid(err.Error())
	}
	return &resp, nil
}
