package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTranslator_Builtin(t *testing.T) {
	tr := New("ja_JP", "", zap.NewNop())

	assert.Equal(t, "ja_JP", tr.Locale())
	assert.Equal(t, "日の出", tr.T("Sunrise"))
	assert.Equal(t, "火", tr.T("Tue"))
	assert.Equal(t, "湿度", tr.T("Humidity"))
}

func TestTranslator_FallsBackToInput(t *testing.T) {
	tr := New("ja_JP", "", zap.NewNop())
	assert.Equal(t, "Unknown Text", tr.T("Unknown Text"))

	en := New("en_US", "", zap.NewNop())
	assert.Equal(t, "Sunrise", en.T("Sunrise"))

	missing := New("xx_XX", "", zap.NewNop())
	assert.Equal(t, "Humidity", missing.T("Humidity"))

	var nilTr *Translator
	assert.Equal(t, "Wind", nilTr.T("Wind"))
}

func TestTranslator_DirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ja_JP.yaml"), []byte("Sunrise: 日出\n"), 0644))

	tr := New("ja_JP", dir, zap.NewNop())
	assert.Equal(t, "日出", tr.T("Sunrise"))
	// The override replaces the table entirely.
	assert.Equal(t, "Sunset", tr.T("Sunset"))

	// Locales absent from the directory still use the embedded tables.
	de := New("de_DE", dir, zap.NewNop())
	assert.Equal(t, "Di", de.T("Tue"))
}

func TestTranslator_BrokenTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr_FR.yaml"), []byte("- not\n- a map\n"), 0644))

	tr := New("fr_FR", dir, zap.NewNop())
	assert.Equal(t, "Age", tr.T("Age"))
}

func TestNewFromTable(t *testing.T) {
	tr := NewFromTable("test", map[string]string{"Age": "Alter", "Wind": ""})
	assert.Equal(t, "Alter", tr.T("Age"))
	assert.Equal(t, "Wind", tr.T("Wind"))
	assert.Equal(t, "x", NewFromTable("test", nil).T("x"))
}
