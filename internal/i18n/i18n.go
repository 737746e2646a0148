// Package i18n translates the renderer's fixed labels. Lookups never fail:
// a label without a translation is returned unchanged.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtin embed.FS

// Translator maps English labels to the active locale.
type Translator struct {
	locale string
	table  map[string]string
}

// New loads the table for locale. Tables in dir (if non-empty) take
// precedence over the embedded ones. A missing or broken table is logged
// and yields a pass-through translator.
func New(locale, dir string, logger *zap.Logger) *Translator {
	t := &Translator{locale: locale, table: map[string]string{}}

	table, err := loadTable(locale, dir)
	if err != nil {
		logger.Warn("No translations for locale, labels stay untranslated",
			zap.String("locale", locale),
			zap.Error(err))
		return t
	}

	t.table = table
	logger.Debug("Loaded translations",
		zap.String("locale", locale),
		zap.Int("entries", len(table)))
	return t
}

// NewFromTable builds a translator from an in-memory table.
func NewFromTable(locale string, table map[string]string) *Translator {
	if table == nil {
		table = map[string]string{}
	}
	return &Translator{locale: locale, table: table}
}

func loadTable(locale, dir string) (map[string]string, error) {
	name := locale + ".yaml"

	var data []byte
	var err error
	if dir != "" {
		data, err = os.ReadFile(filepath.Join(dir, name))
	}
	if dir == "" || errors.Is(err, fs.ErrNotExist) {
		data, err = builtin.ReadFile("locales/" + name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read locale table %s: %w", name, err)
	}

	table := map[string]string{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse locale table %s: %w", name, err)
	}
	return table, nil
}

// Locale returns the active locale name.
func (t *Translator) Locale() string {
	return t.locale
}

// T returns the translation of text, or text itself.
func (t *Translator) T(text string) string {
	if t == nil {
		return text
	}
	if v, ok := t.table[text]; ok && v != "" {
		return v
	}
	return text
}
