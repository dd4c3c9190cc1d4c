// Package services – language detection
//
// This file implements the lexical language detector used to pick a
// response language when the client asks for auto-detection. It tests the
// message against ordered function-word patterns; the first matching
// language wins, so the Spanish > French > German > English tie-break is
// part of the contract.
package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// LanguageAuto is the hint value (or absence of one) that triggers
// detection instead of an explicit language choice.
const LanguageAuto = "auto"

// SupportedLanguage is one entry of the fixed supported-language list.
type SupportedLanguage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages returns the fixed list exposed by GET /languages.
func SupportedLanguages() []SupportedLanguage {
	return []SupportedLanguage{
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Español"},
		{Code: "fr", Name: "Français"},
		{Code: "de", Name: "Deutsch"},
		{Code: LanguageAuto, Name: "Auto-detect"},
	}
}

// Function-word patterns per language. Order of evaluation matters:
// Spanish before French before German, English as the default.
var (
	spanishWordsRE = regexp.MustCompile(`(?i)\b(el|la|los|las|y|o|pero|en|sobre|a|para|de|con|por)\b`)
	frenchWordsRE  = regexp.MustCompile(`(?i)\b(le|la|les|et|ou|mais|dans|sur|à|pour|de|avec|par)\b`)
	germanWordsRE  = regexp.MustCompile(`(?i)\b(der|die|das|und|oder|aber|in|auf|zu|für|von|mit|durch)\b`)
)

// DetectLanguage guesses a response language from message text. It is a
// pure function: same input, same output, no I/O.
func DetectLanguage(text string) string {
	switch {
	case spanishWordsRE.MatchString(text):
		return "es"
	case frenchWordsRE.MatchString(text):
		return "fr"
	case germanWordsRE.MatchString(text):
		return "de"
	default:
		return "en"
	}
}

// ResolveLanguage turns a client hint into a concrete language code.
// An empty or "auto" hint runs detection over the message text; any other
// hint bypasses detection and is normalized to its base tag (e.g.
// "es-MX" → "es"). Unparseable hints fall back to detection.
func ResolveLanguage(hint, text string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || hint == LanguageAuto {
		return DetectLanguage(text)
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return DetectLanguage(text)
	}
	base, _ := tag.Base()
	return base.String()
}
