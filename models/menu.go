package models

import "time"

// Menu belongs to exactly one Store (§3). A Store's catch-all Menu
// (IsCatchAll = true) holds synthetic MenuItems created for OCR or ad-hoc
// order items so OrderItem.menu_item_id's NOT-NULL constraint always holds
// (§4.4, §GLOSSARY "Catch-all Menu").
type Menu struct {
	ID            int64     `json:"id"`
	StoreID       int64     `json:"store_id"`
	Version       int       `json:"version"`
	EffectiveDate time.Time `json:"effective_date"`
	IsCatchAll    bool      `json:"is_catch_all"`
}

// MenuItem belongs to a Menu. PriceSmall is required; PriceLarge is
// optional. Referenced by OrderItem via a NOT-NULL foreign key (§3).
type MenuItem struct {
	ID         int64  `json:"id"`
	MenuID     int64  `json:"menu_id"`
	NameZh     string `json:"name_zh"`
	PriceSmall int    `json:"price_small"`
	PriceLarge *int   `json:"price_large,omitempty"`
	Category   string `json:"category,omitempty"`
}
