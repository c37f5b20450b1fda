package models

import "time"

// OCRMenu is created per successful menu-photo ingestion (§4.2). Immutable
// after creation; OCR ingest of the same image twice produces two rows
// (insert-only, never updated in place).
type OCRMenu struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	StoreID           *int64    `json:"store_id,omitempty"`
	CapturedStoreName string    `json:"captured_store_name,omitempty"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// OCRMenuItem is one recognised line of a photographed menu. ItemName is
// the Chinese original as printed; TranslatedDesc is the target-language
// name captured at ingestion time.
type OCRMenuItem struct {
	ID             int64  `json:"id"`
	OCRMenuID      int64  `json:"ocr_menu_id"`
	ItemName       string `json:"item_name"`
	PriceSmall     int    `json:"price_small"`
	PriceBig       int    `json:"price_big"`
	TranslatedDesc string `json:"translated_desc,omitempty"`
}

// OCRMenuTranslation holds a translation of an OCRMenuItem into a language
// beyond the one captured at ingestion time.
type OCRMenuTranslation struct {
	ID                    int64  `json:"id"`
	OCRMenuItemID         int64  `json:"ocr_menu_item_id"`
	LanguageCode          string `json:"language_code"`
	TranslatedName        string `json:"translated_name"`
	TranslatedDescription string `json:"translated_description,omitempty"`
}
