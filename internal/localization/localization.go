// Package localization provides the user-facing strings of chat cards and
// LinkU listings. Translations are JSON files named by language code
// (e.g. "ko.json"); the built-in set is embedded in the binary.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embedded embed.FS

const fallbackLang = "en"

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	lang         string
	mu           sync.RWMutex
}

// NewLocalizer loads the embedded translations and uses lang as the default
// language for Text.
func NewLocalizer(lang string) (*Localizer, error) {
	return NewLocalizerFS(embedded, "locales", lang)
}

// NewLocalizerFS loads every *.json file in dir of fsys.
func NewLocalizerFS(fsys fs.FS, dir, lang string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		lang:         lang,
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[strings.TrimSuffix(file.Name(), ".json")] = translations
	}

	if _, ok := l.translations[lang]; !ok {
		return nil, fmt.Errorf("no translations for language %q", lang)
	}
	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it falls back to English and then
// to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if lang != fallbackLang {
		if enTranslations, ok := l.translations[fallbackLang]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Text returns key in the default language, formatted with args when given.
func (l *Localizer) Text(key string, args ...any) string {
	s := l.GetString(l.lang, key)
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}
