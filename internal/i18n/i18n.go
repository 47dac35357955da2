// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n holds the translated user facing messages of the client.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is used for unknown languages and missing keys.
const DefaultLanguage = "en"

// SupportedLanguages lists the languages with a message file.
var SupportedLanguages = []string{"en", "es"}

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds all translations for all supported languages.
type Catalog struct {
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
}

var (
	catalog  *Catalog
	loadErr  error
	loadOnce sync.Once
)

// Init loads the message files and logs what was loaded. Calling it is
// optional: the first translation loads the files on demand.
func Init(logger *slog.Logger) error {
	if _, err := load(); err != nil {
		return err
	}
	if logger != nil {
		for _, lang := range SupportedLanguages {
			logger.Debug("loaded translations", "language", lang, "count", TranslationCount(lang))
		}
	}
	return nil
}

func load() (*Catalog, error) {
	loadOnce.Do(func() {
		c := &Catalog{translations: make(map[string]map[string]string)}
		for _, lang := range SupportedLanguages {
			if err := c.loadLanguage(lang); err != nil {
				loadErr = fmt.Errorf("failed to load language %s: %w", lang, err)
				return
			}
			c.supported = append(c.supported, language.MustParse(lang))
		}
		c.matcher = language.NewMatcher(c.supported)
		catalog = c
	})
	return catalog, loadErr
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.translations[lang] = make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		c.translations[lang][msg.ID] = msg.Translation
	}
	return nil
}

// T translates key into lang, falling back to the default language and then
// to the key itself. Arguments are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	c, err := load()
	if err != nil {
		return key
	}

	translation, ok := c.translations[lang][key]
	if !ok {
		translation, ok = c.translations[DefaultLanguage][key]
		if !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// MatchLanguage finds the best supported language for a language code or
// an Accept-Language style list such as "es-AR, en;q=0.8".
func MatchLanguage(s string) string {
	c, err := load()
	if err != nil {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(s)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(c.supported) {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}

// IsSupported checks if a language code has a message file.
func IsSupported(lang string) bool {
	lang = strings.ToLower(lang)
	for _, supported := range SupportedLanguages {
		if supported == lang {
			return true
		}
	}
	return false
}

// TranslationCount returns the number of translations loaded for a language.
func TranslationCount(lang string) int {
	c, err := load()
	if err != nil {
		return 0
	}
	return len(c.translations[lang])
}

// Key is an error whose text is the catalogue entry it names. Error returns
// the default language text.
type Key string

func (k Key) Error() string { return T(DefaultLanguage, string(k)) }

// Localize returns the text of k in lang.
func (k Key) Localize(lang string) string { return T(lang, string(k)) }

// Localizer is implemented by errors that can render themselves in a
// supported language.
type Localizer interface {
	Localize(lang string) string
}

// Localize returns the user facing text of err in lang. The outermost
// Localizer in the chain wins; other errors render as err.Error().
func Localize(lang string, err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if l, ok := e.(Localizer); ok {
			return l.Localize(lang)
		}
	}
	return err.Error()
}
