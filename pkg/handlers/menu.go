package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	httputil "github.com/ordering-helper/backend/pkg/http"
	"github.com/ordering-helper/backend/translate"
)

const maxOCRImageBytes = 10 * 1024 * 1024 // §4.2 step 1, mirrors ServerConfig.MaxBodySize default

// MenuHandlers exposes partner menu listing and the Menu OCR Ingestor (C2)
// over HTTP (§6).
type MenuHandlers struct {
	BaseHandlers
}

// NewMenuHandlers builds MenuHandlers.
func NewMenuHandlers(c *container.ServiceContainer) MenuHandlers {
	return MenuHandlers{NewBaseHandlers(c)}
}

type menuItemEntry struct {
	ID               int64  `json:"id"`
	NameNative       string `json:"name_native"`
	Name             string `json:"name"`
	OriginalName     string `json:"original_name"`
	TranslatedName   string `json:"translated_name"`
	PriceSmall       int    `json:"price_small"`
	PriceLarge       *int   `json:"price_large,omitempty"`
	Category         string `json:"category,omitempty"`
	OriginalCategory string `json:"original_category,omitempty"`
	ShowImage        bool   `json:"show_image"`
}

// Get answers GET /menu/{store_id}; items with price_small <= 0 are excluded.
func (h MenuHandlers) Get(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(mux.Vars(r)["store_id"], 10, 64)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid store_id"))
		return
	}

	lang := translate.Normalize(r.URL.Query().Get("lang"))
	items, lerr := h.Container.Stores().ListMenuItems(storeID)
	if lerr != nil {
		httputil.Error(w, lerr.(*errors.AppError))
		return
	}

	tf := h.Container.Translations()
	out := make([]menuItemEntry, 0, len(items))
	for _, mi := range items {
		if mi.PriceSmall <= 0 {
			continue
		}
		translated := mi.NameZh
		if tf != nil {
			translated = tf.Translate(r.Context(), mi.NameZh, lang)
		}
		out = append(out, menuItemEntry{
			ID:               mi.ID,
			NameNative:       mi.NameZh,
			Name:             translated,
			OriginalName:     mi.NameZh,
			TranslatedName:   translated,
			PriceSmall:       mi.PriceSmall,
			PriceLarge:       mi.PriceLarge,
			Category:         mi.Category,
			OriginalCategory: mi.Category,
			ShowImage:        false,
		})
	}

	httputil.Success(w, "menu listed", out)
}

// ProcessOCR answers POST /menu/process-ocr (multipart).
func (h MenuHandlers) ProcessOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOCRImageBytes)
	if err := r.ParseMultipartForm(maxOCRImageBytes); err != nil {
		httputil.Error(w, errors.BadRequest("image missing or exceeds size limit"))
		return
	}

	storeIDRaw := r.FormValue("store_id")
	if storeIDRaw == "" {
		httputil.Error(w, errors.BadRequest("store_id is required"))
		return
	}
	storeID := h.Container.Stores().SafeResolve(storeIDRaw, 0)
	if storeID == 0 {
		httputil.Error(w, errors.BadRequest("store_id could not be resolved"))
		return
	}

	file, _, ferr := r.FormFile("image")
	if ferr != nil {
		httputil.Error(w, errors.BadRequest("image is required"))
		return
	}
	defer file.Close()

	imageBytes, rerr := io.ReadAll(file)
	if rerr != nil {
		httputil.Error(w, errors.BadRequest("image could not be read"))
		return
	}

	userID := r.FormValue("user_id")
	lang := translate.Normalize(r.FormValue("lang"))
	simpleMode := r.FormValue("simple_mode") == "true"

	ing := h.Container.Ingestor()
	if simpleMode {
		items, err := ing.IngestSimple(r.Context(), imageBytes, storeID, userID, lang)
		if err != nil {
			writeOCRError(w, err)
			return
		}
		httputil.Created(w, "menu ingested", items)
		return
	}

	items, err := ing.Ingest(r.Context(), imageBytes, storeID, userID, lang)
	if err != nil {
		writeOCRError(w, err)
		return
	}
	httputil.Created(w, "menu ingested", items)
}

func writeOCRError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		httputil.Error(w, appErr)
		return
	}
	httputil.Error(w, errors.InternalError(err.Error()))
}
