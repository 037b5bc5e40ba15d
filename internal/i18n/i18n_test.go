package i18n

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabeler_English(t *testing.T) {
	l := NewLabeler(NewBundle(), "en")

	assert.Equal(t, "Today", l.Today())
	assert.Equal(t, "Tomorrow", l.Tomorrow())
	assert.Equal(t, "Wednesday", l.Weekday(time.Wednesday))
	assert.Equal(t, "Exchange 17:00", l.Exchange("17:00"))
}

func TestLabeler_French(t *testing.T) {
	l := NewLabeler(NewBundle(), "fr")

	assert.Equal(t, "Aujourd'hui", l.Today())
	assert.Equal(t, "Lundi", l.Weekday(time.Monday))
	assert.Equal(t, "Échange 08:00", l.Exchange("08:00"))
}

func TestLabeler_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	l := NewLabeler(NewBundle(), "tlh")

	assert.Equal(t, "Today", l.Today())
	assert.Equal(t, "Saturday", l.Weekday(time.Saturday))
}

// TestLocales_KeyParity ensures every locale file defines the same keys as
// the English reference, so no language silently falls back mid-sentence.
func TestLocales_KeyParity(t *testing.T) {
	ref := localeKeys(t, "locales/active.en.json")
	require.NotEmpty(t, ref)

	entries, err := localeFS.ReadDir("locales")
	require.NoError(t, err)

	for _, entry := range entries {
		got := localeKeys(t, "locales/"+entry.Name())
		assert.ElementsMatch(t, ref, got, "locale %s must define the full key set", entry.Name())
	}
}

func localeKeys(t *testing.T, path string) []string {
	t.Helper()

	raw, err := localeFS.ReadFile(path)
	require.NoError(t, err)

	var msgs map[string]any
	require.NoError(t, json.Unmarshal(raw, &msgs))

	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	return keys
}
