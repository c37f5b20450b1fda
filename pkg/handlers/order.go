package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ordering-helper/backend/cart"
	"github.com/ordering-helper/backend/pipeline"
	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	httputil "github.com/ordering-helper/backend/pkg/http"
)

// OrderHandlers adapts the submission dialects §4.9 describes into the
// Order Pipeline Coordinator's (C8) canonical SubmitRequest.
type OrderHandlers struct {
	BaseHandlers
}

// NewOrderHandlers builds OrderHandlers.
func NewOrderHandlers(c *container.ServiceContainer) OrderHandlers {
	return OrderHandlers{NewBaseHandlers(c)}
}

type namePairJSON struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

type cartItemJSON struct {
	MenuItemID     json.Number   `json:"menu_item_id"`
	Name           *namePairJSON `json:"name"`
	OriginalName   string        `json:"original_name"`
	TranslatedName string        `json:"translated_name"`
	ItemName       string        `json:"item_name"`
	Quantity       int           `json:"quantity"`
	Price          int           `json:"price"`
	PriceSmall     int           `json:"price_small"`
}

func (c cartItemJSON) toRawItem() cart.RawItem {
	raw := cart.RawItem{
		OriginalName:   c.OriginalName,
		TranslatedName: c.TranslatedName,
		ItemName:       c.ItemName,
		Quantity:       c.Quantity,
		Price:          c.Price,
		PriceSmall:     c.PriceSmall,
		MenuItemID:     c.MenuItemID.String(),
	}
	if c.Name != nil {
		raw.Name = &cart.NamePair{Original: c.Name.Original, Translated: c.Name.Translated}
	}
	return raw
}

// quickSubmitRequest is the canonical submission dialect (§4.8).
type quickSubmitRequest struct {
	StoreID    json.Number    `json:"store_id"`
	LineUserID string         `json:"line_user_id"`
	Lang       string         `json:"lang"`
	Items      []cartItemJSON `json:"items"`
}

// legacySubmitRequest is the older dialect accepted by POST /orders,
// /orders/simple, /orders/ocr, /orders/ocr-optimized (§6 "Legacy submission
// endpoints"): store key under a different field name, language under
// "language" instead of "lang".
type legacySubmitRequest struct {
	Store      json.Number    `json:"store"`
	StoreID    json.Number    `json:"store_id"`
	PlaceID    string         `json:"place_id"`
	UserID     string         `json:"user_id"`
	LineUserID string         `json:"line_user_id"`
	Language   string         `json:"language"`
	Lang       string         `json:"lang"`
	Items      []cartItemJSON `json:"items"`
	Cart       []cartItemJSON `json:"cart"`
}

func (r legacySubmitRequest) storeRef() string {
	if r.PlaceID != "" {
		return r.PlaceID
	}
	if r.StoreID.String() != "" && r.StoreID.String() != "0" {
		return r.StoreID.String()
	}
	return r.Store.String()
}

func (r legacySubmitRequest) lineUserID() string {
	if r.LineUserID != "" {
		return r.LineUserID
	}
	return r.UserID
}

func (r legacySubmitRequest) lang() string {
	if r.Lang != "" {
		return r.Lang
	}
	return r.Language
}

func (r legacySubmitRequest) items() []cartItemJSON {
	if len(r.Items) > 0 {
		return r.Items
	}
	return r.Cart
}

func toRawItems(items []cartItemJSON) []cart.RawItem {
	out := make([]cart.RawItem, len(items))
	for i, it := range items {
		out[i] = it.toRawItem()
	}
	return out
}

// Quick answers POST /orders/quick, the canonical short-request submission.
func (h OrderHandlers) Quick(w http.ResponseWriter, r *http.Request) {
	var req quickSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, errors.BadRequest("invalid request body"))
		return
	}

	result, err := h.Container.Coordinator().Submit(r.Context(), pipeline.SubmitRequest{
		StoreRef:   req.StoreID.String(),
		LineUserID: req.LineUserID,
		Language:   req.Lang,
		Items:      toRawItems(req.Items),
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	httputil.Accepted(w, "order submitted", map[string]interface{}{
		"order_id": result.OrderID,
		"status":   result.Status,
		"poll_url": result.PollURL,
	})
}

// Legacy answers the four legacy submission endpoints (§6) through the same
// Submit and background-task path as Quick; none of them runs the pipeline
// inline.
func (h OrderHandlers) Legacy(w http.ResponseWriter, r *http.Request) {
	var req legacySubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, errors.BadRequest("invalid request body"))
		return
	}

	result, err := h.Container.Coordinator().Submit(r.Context(), pipeline.SubmitRequest{
		StoreRef:   req.storeRef(),
		LineUserID: req.lineUserID(),
		Language:   req.lang(),
		Items:      toRawItems(req.items()),
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	httputil.Accepted(w, "order submitted", map[string]interface{}{
		"order_id": result.OrderID,
		"status":   result.Status,
		"poll_url": result.PollURL,
	})
}

// Status answers GET /orders/status/{order_id} (§6, polled every 2s up to
// 30 attempts by the caller).
func (h OrderHandlers) Status(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(mux.Vars(r)["order_id"], 10, 64)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid order_id"))
		return
	}

	result, serr := h.Container.Coordinator().Status(orderID)
	if serr != nil {
		writeOrderError(w, serr)
		return
	}

	if !result.Found {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{"status": "not_found"})
		return
	}

	resp := map[string]interface{}{
		"order_id":      result.OrderID,
		"status":        result.Status,
		"processing":    result.Processing,
		"store_name":    result.StoreName,
		"total_amount":  result.TotalAmount,
		"order_time":    result.OrderTime,
		"voice_ready":   result.VoiceReady,
		"summary_ready": result.SummaryReady,
	}
	if result.VoiceReady {
		resp["voice_url"] = result.VoiceURL
	}
	if result.SummaryReady {
		resp["summary"] = map[string]string{
			"chinese":   result.ChineseText,
			"translated": result.TranslatedText,
		}
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// ProcessTask answers POST /orders/process-task, the OIDC-guarded
// background-task entrypoint (§6 "Background task contract"). The OIDC
// check itself runs in middleware before this handler is reached.
func (h OrderHandlers) ProcessTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.Error(w, errors.BadRequest("invalid task payload"))
		return
	}

	if err := h.Container.Coordinator().ProcessTask(r.Context(), payload.OrderID); err != nil {
		writeOrderError(w, err)
		return
	}

	httputil.Success(w, "task processed", map[string]interface{}{"order_id": payload.OrderID})
}

func writeOrderError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		httputil.Error(w, appErr)
		return
	}
	httputil.Error(w, errors.InternalError(fmt.Sprintf("order pipeline error: %v", err)))
}
