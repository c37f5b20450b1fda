// Package summary implements the Summary Renderer (C5): it produces the
// Chinese summary, the user-language summary, and the Mandarin voice text
// from two independent deep copies of the canonical cart, so that
// translating one view can never leak into the other (§4.5, §9 "Parallel
// bilingual representations").
package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ordering-helper/backend/cart"
	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/translate"
)

const emptyCartFallback = "點餐摘要"

// drinkKeywords classify an item as "杯" rather than "份" (§4.5 step 4,
// §GLOSSARY "Processing voice text").
var drinkKeywords = []string{"茶", "咖啡", "飲料", "果汁", "奶茶", "汽水", "可樂", "啤酒", "酒"}

// lineItem is the base view's per-item shape (§4.5 step 1): name is always
// the Chinese original here, never mutated afterward. translated carries
// whatever translation the cart/OCR layer already resolved for this item,
// so the display view doesn't need to re-translate the Chinese name.
type lineItem struct {
	name       string
	translated string
	quantity   int
	price      int
}

// Rendered holds the renderer's three independent outputs.
type Rendered struct {
	ChineseSummary     string
	UserLanguageSummary string
	VoiceText          string
	Total              int
}

// Render runs the deep-copy-rule pipeline: one base view, two independent
// copies, translation applied to display_view only (§4.5 steps 1-4).
func Render(ctx context.Context, tf *translate.Facade, storeNameZh string, items []cart.Item, userLang string) Rendered {
	base := buildBaseView(items)
	total := sumTotal(base)

	if len(base) == 0 || allNamesEmpty(base) {
		logger.Warn("summary renderer received an empty or nameless cart, using fallback", map[string]interface{}{
			"store": storeNameZh,
		})
		return Rendered{
			ChineseSummary:      emptyCartFallback,
			UserLanguageSummary: emptyCartFallback,
			VoiceText:           emptyCartFallback,
			Total:               total,
		}
	}

	nativeView := deepCopy(base)
	displayView := deepCopy(base)

	normalizedLang := translate.Normalize(userLang)
	isChinese := translate.IsChinese(normalizedLang)

	if !isChinese {
		_ = storeNameZh // store name translation is rendered by callers that need it (e.g. HTTP edge); not part of the three strings here
		for i := range displayView {
			translated := displayView[i].translated
			if translated == "" {
				translated = tf.Translate(ctx, displayView[i].name, normalizedLang)
			}
			if translated == "" {
				translated = displayView[i].name
			}
			displayView[i].name = translated
		}
	}

	chineseSummary := renderChineseSummary(nativeView)
	userLanguageSummary := chineseSummary
	if !isChinese {
		userLanguageSummary = renderUserLanguageSummary(displayView)
	}

	return Rendered{
		ChineseSummary:      chineseSummary,
		UserLanguageSummary: userLanguageSummary,
		VoiceText:           renderVoiceText(nativeView),
		Total:               total,
	}
}

func buildBaseView(items []cart.Item) []lineItem {
	out := make([]lineItem, 0, len(items))
	for _, it := range items {
		out = append(out, lineItem{name: it.Original, translated: it.Translated, quantity: it.Quantity, price: it.Price})
	}
	return out
}

func deepCopy(in []lineItem) []lineItem {
	out := make([]lineItem, len(in))
	copy(out, in)
	return out
}

func allNamesEmpty(items []lineItem) bool {
	for _, it := range items {
		if strings.TrimSpace(it.name) != "" {
			return false
		}
	}
	return true
}

func sumTotal(items []lineItem) int {
	total := 0
	for _, it := range items {
		total += it.quantity * it.price
	}
	return total
}

// renderChineseSummary implements §4.5 step 4's "{name} x {q}、…" format.
func renderChineseSummary(items []lineItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s x %d", it.name, it.quantity)
	}
	return strings.Join(parts, "、")
}

// renderUserLanguageSummary implements the "Order: {name} x {q}、…" format.
func renderUserLanguageSummary(items []lineItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s x %d", it.name, it.quantity)
	}
	return "Order: " + strings.Join(parts, "、")
}

// renderVoiceText builds the spoken Mandarin sentence from the native view
// only (§4.5 step 4, §GLOSSARY "Processing voice text").
func renderVoiceText(items []lineItem) string {
	if len(items) == 0 {
		return emptyCartFallback
	}

	phrases := make([]string, len(items))
	for i, it := range items {
		phrases[i] = it.name + quantityNumeral(it.quantity) + classifier(it.name)
	}

	if len(phrases) == 1 {
		return fmt.Sprintf("老闆,我要%s,謝謝。", phrases[0])
	}

	joined := strings.Join(phrases[:len(phrases)-1], "、") + "和" + phrases[len(phrases)-1]
	return fmt.Sprintf("老闆,我要%s,謝謝。", joined)
}

// classifier picks 「杯」 for drink names, 「份」 otherwise.
func classifier(name string) string {
	for _, kw := range drinkKeywords {
		if strings.Contains(name, kw) {
			return "杯"
		}
	}
	return "份"
}

// quantityNumeral renders 1 as 「一」, other quantities as the Arabic
// numeral (§4.5 step 4).
func quantityNumeral(q int) string {
	if q == 1 {
		return "一"
	}
	return strconv.Itoa(q)
}
