package model

import (
	"net/url"
	"strings"
)

const (
	LanguageChinese = "zh-CN"
	LanguageEnglish = "en-US"

	DefaultLanguage = LanguageChinese
)

// Languages lists the metadata languages the service accepts, in display order.
func Languages() []string {
	return []string{LanguageChinese, LanguageEnglish}
}

// LanguageLabel is the display name used by selectors.
func LanguageLabel(lang string) string {
	switch lang {
	case LanguageChinese:
		return "中文"
	case LanguageEnglish:
		return "English"
	default:
		return lang
	}
}

func ValidLanguage(lang string) bool {
	for _, l := range Languages() {
		if l == lang {
			return true
		}
	}
	return false
}

// NextLanguage cycles through Languages; unknown values start over at the first entry.
func NextLanguage(lang string) string {
	langs := Languages()
	for i, l := range langs {
		if l == lang {
			return langs[(i+1)%len(langs)]
		}
	}
	return langs[0]
}

// DecodeURL percent-decodes a pasted store link so non-ASCII names are
// readable. It is best effort: input that does not decode cleanly is
// returned as-is.
func DecodeURL(s string) string {
	s = strings.TrimSpace(s)
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
