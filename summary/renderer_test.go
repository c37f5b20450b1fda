package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ordering-helper/backend/cart"
	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/translate"
)

func TestRenderEmptyCartFallsBack(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	r := Render(context.Background(), tf, "測試店家", nil, "en")

	if r.ChineseSummary != emptyCartFallback || r.UserLanguageSummary != emptyCartFallback || r.VoiceText != emptyCartFallback {
		t.Errorf("expected every field to fall back to %q, got %+v", emptyCartFallback, r)
	}
	if r.Total != 0 {
		t.Errorf("expected zero total for empty cart, got %d", r.Total)
	}
}

func TestRenderChineseTargetSkipsTranslation(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{{Original: "牛肉麵", Translated: "Beef Noodle Soup", Quantity: 2, Price: 120}}

	r := Render(context.Background(), tf, "測試店家", items, "zh-tw")

	if r.ChineseSummary != r.UserLanguageSummary {
		t.Errorf("expected chinese and user-language summaries to match for a zh target, got %q vs %q", r.ChineseSummary, r.UserLanguageSummary)
	}
	if !strings.Contains(r.ChineseSummary, "牛肉麵 x 2") {
		t.Errorf("expected chinese summary to contain the native name, got %q", r.ChineseSummary)
	}
}

func TestRenderNonChineseTargetFallsOpenWithoutAPIKey(t *testing.T) {
	tf := translate.New(config.TranslationConfig{APIKey: ""}, nil, time.Minute)
	items := []cart.Item{{Original: "牛肉麵", Quantity: 1, Price: 120}}

	r := Render(context.Background(), tf, "測試店家", items, "en")

	if !strings.Contains(r.UserLanguageSummary, "牛肉麵") {
		t.Errorf("expected fail-open translation to keep the native name, got %q", r.UserLanguageSummary)
	}
	if !strings.HasPrefix(r.UserLanguageSummary, "Order: ") {
		t.Errorf("expected user-language summary prefix, got %q", r.UserLanguageSummary)
	}
}

func TestRenderNonChineseTargetUsesPersistedTranslationOverBackend(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{{Original: "牛肉麵", Translated: "Beef Noodle Soup", Quantity: 1, Price: 120}}

	r := Render(context.Background(), tf, "測試店家", items, "en")

	if !strings.Contains(r.UserLanguageSummary, "Beef Noodle Soup") {
		t.Errorf("expected display summary to use the already-persisted translation, got %q", r.UserLanguageSummary)
	}
	if strings.Contains(r.UserLanguageSummary, "牛肉麵") {
		t.Errorf("expected display summary not to leak the chinese name, got %q", r.UserLanguageSummary)
	}
	if !strings.Contains(r.ChineseSummary, "牛肉麵") {
		t.Errorf("expected chinese summary to keep the native name, got %q", r.ChineseSummary)
	}
}

func TestRenderTotalSumsQuantityTimesPrice(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{
		{Original: "牛肉麵", Quantity: 2, Price: 120},
		{Original: "珍珠奶茶", Quantity: 1, Price: 60},
	}

	r := Render(context.Background(), tf, "測試店家", items, "zh-tw")

	if r.Total != 300 {
		t.Errorf("expected total 300, got %d", r.Total)
	}
}

func TestRenderVoiceTextSingleItem(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{{Original: "牛肉麵", Quantity: 1, Price: 120}}

	r := Render(context.Background(), tf, "測試店家", items, "zh-tw")

	want := "老闆,我要牛肉麵一份,謝謝。"
	if r.VoiceText != want {
		t.Errorf("expected %q, got %q", want, r.VoiceText)
	}
}

func TestRenderVoiceTextMultipleItemsJoinedWithAnd(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{
		{Original: "牛肉麵", Quantity: 1, Price: 120},
		{Original: "珍珠奶茶", Quantity: 2, Price: 60},
	}

	r := Render(context.Background(), tf, "測試店家", items, "zh-tw")

	if !strings.Contains(r.VoiceText, "和珍珠奶茶2杯") {
		t.Errorf("expected the final item joined with 和 and classified as a drink, got %q", r.VoiceText)
	}
}

func TestRenderVoiceTextClassifiesDrinksVsDishes(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)

	dish := Render(context.Background(), tf, "測試店家", []cart.Item{{Original: "牛肉麵", Quantity: 1, Price: 120}}, "zh-tw")
	if !strings.Contains(dish.VoiceText, "份") {
		t.Errorf("expected a dish to be classified with 份, got %q", dish.VoiceText)
	}

	drink := Render(context.Background(), tf, "測試店家", []cart.Item{{Original: "珍珠奶茶", Quantity: 1, Price: 60}}, "zh-tw")
	if !strings.Contains(drink.VoiceText, "杯") {
		t.Errorf("expected a drink to be classified with 杯, got %q", drink.VoiceText)
	}
}

func TestRenderNamelessCartFallsBack(t *testing.T) {
	tf := translate.New(config.TranslationConfig{}, nil, time.Minute)
	items := []cart.Item{{Original: "", Quantity: 1, Price: 10}}

	r := Render(context.Background(), tf, "測試店家", items, "zh-tw")
	if r.ChineseSummary != emptyCartFallback {
		t.Errorf("expected fallback for a cart whose items have no name, got %q", r.ChineseSummary)
	}
}
