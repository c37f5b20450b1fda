package models

// Language is a static, read-only lookup of locale tags (§3). Loaded once
// at startup; never written by request handlers.
type Language struct {
	LineLocale     string `json:"line_locale"`
	TranslationTag string `json:"translation_tag"`
	SpeechTag      string `json:"speech_tag"`
	DisplayName    string `json:"display_name"`
}

// SupportedTranslationTags is the short set §4.11 normalizes BCP-47 tags
// into. Unknown tags fall back to "en".
var SupportedTranslationTags = []string{
	"en", "zh-tw", "zh-cn", "ja", "ko", "fr", "de", "es", "it", "pt", "ru", "ar", "hi", "th", "vi",
}
