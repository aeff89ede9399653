// Package i18n loads flat JSON translation files and negotiates languages.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// Bundle holds translations for a fixed set of languages.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Load reads <dir>/<lang>.json for each supported language. Only the
// fallback file is mandatory.
func Load(dir string, fallback string, supported []string) (*Bundle, error) {
	fallback = normalize(fallback)
	if fallback == "" {
		fallback = "en"
	}
	if len(supported) == 0 {
		supported = []string{fallback}
	}
	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// the matcher's first tag is its default, so the fallback goes first
	tags := []language.Tag{language.Make(fallback)}
	b.supported = append(b.supported, fallback)
	for _, l := range supported {
		l = normalize(l)
		if l == "" || l == fallback {
			continue
		}
		b.supported = append(b.supported, l)
		tags = append(tags, language.Make(l))
	}
	for _, l := range b.supported {
		raw, err := os.ReadFile(filepath.Join(dir, l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported returns the configured languages, fallback first.
func (b *Bundle) Supported() []string {
	return append([]string(nil), b.supported...)
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang is one of the configured languages.
func (b *Bundle) IsSupported(lang string) bool {
	lang = normalize(lang)
	for _, l := range b.supported {
		if l == lang {
			return true
		}
	}
	return false
}

// T returns the translation for key in lang, falling back to the default
// language and finally to the key itself.
func (b *Bundle) T(lang, key string) string {
	if v, ok := b.Lookup(lang, key); ok {
		return v
	}
	return key
}

// Lookup is T without the key fallback.
func (b *Bundle) Lookup(lang, key string) (string, bool) {
	if m, ok := b.dict[normalize(lang)]; ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Resolve picks the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.fallback
	}
	return b.supported[idx]
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
