package handlers

import (
	"net/http"

	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	httputil "github.com/ordering-helper/backend/pkg/http"
	"github.com/ordering-helper/backend/store"
	"github.com/ordering-helper/backend/translate"
)

// StoreHandlers exposes the Store Resolver (C1) over HTTP (§6).
type StoreHandlers struct {
	BaseHandlers
}

// NewStoreHandlers builds StoreHandlers.
func NewStoreHandlers(c *container.ServiceContainer) StoreHandlers {
	return StoreHandlers{NewBaseHandlers(c)}
}

type storeListEntry struct {
	StoreID      int64  `json:"store_id"`
	StoreName    string `json:"store_name"`
	DisplayName  string `json:"display_name"`
	PartnerLevel int    `json:"partner_level"`
}

// List answers GET /stores, optionally translating display_name via ?lang=.
func (h StoreHandlers) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Container.Stores().List()
	if err != nil {
		httputil.Error(w, err.(*errors.AppError))
		return
	}

	lang := translate.Normalize(r.URL.Query().Get("lang"))
	tf := h.Container.Translations()

	out := make([]storeListEntry, len(stores))
	for i, s := range stores {
		displayName := s.DisplayName
		if tf != nil {
			displayName = tf.Translate(r.Context(), displayName, lang)
		}
		out[i] = storeListEntry{
			StoreID:      s.ID,
			StoreName:    s.DisplayName,
			DisplayName:  displayName,
			PartnerLevel: s.PartnerLevel,
		}
	}

	httputil.Success(w, "stores listed", out)
}

// CheckPartnerStatus answers GET /stores/check-partner-status, always 200
// (§6: "always 200") since it is used by the client to decide which
// submission flow to use, not to assert the store's existence.
func (h StoreHandlers) CheckPartnerStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	placeID := q.Get("place_id")
	name := q.Get("name")
	lang := translate.Normalize(q.Get("lang"))

	resp := map[string]interface{}{
		"store_id":        int64(0),
		"store_name":      name,
		"display_name":    name,
		"translated_name": name,
		"original_name":   name,
		"place_id":        placeID,
		"partner_level":   0,
		"is_partner":      false,
		"has_menu":        false,
	}

	if placeID != "" {
		if storeID, err := h.Container.Stores().Resolve(placeID); err == nil {
			if st, serr := h.Container.Stores().Get(storeID); serr == nil {
				translated := st.DisplayName
				if tf := h.Container.Translations(); tf != nil {
					translated = tf.Translate(r.Context(), st.DisplayName, lang)
				}
				hasMenu, _ := h.Container.Stores().HasMenu(storeID)
				resp["store_id"] = st.ID
				resp["store_name"] = st.DisplayName
				resp["display_name"] = st.DisplayName
				resp["translated_name"] = translated
				resp["original_name"] = st.DisplayName
				resp["place_id"] = st.PlaceID
				resp["partner_level"] = st.PartnerLevel
				resp["is_partner"] = st.IsPartner()
				resp["has_menu"] = hasMenu
			}
		}
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// Resolve answers GET /stores/resolve.
func (h StoreHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	placeID := r.URL.Query().Get("place_id")
	if ok, reason := store.ValidateFormat(placeID); !ok {
		httputil.JSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "reason": reason})
		return
	}

	storeID, err := h.Container.Stores().Resolve(placeID)
	if err != nil {
		httputil.Error(w, err.(*errors.AppError))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"place_id": placeID,
		"store_id": storeID,
	})
}
