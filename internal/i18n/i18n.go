// Package i18n provides the localized label strings used by the calendar
// sidebar and the ICS feed ("Today", "Tomorrow", weekday names, exchange
// summaries).
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"coparentcal/internal/config"
)

//go:embed locales/*.json
var localeFS embed.FS

// NewBundle initializes the translation bundle from the embedded locale
// files. Files must be named active.<lang>.json.
func NewBundle() *goi18n.Bundle {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return bundle
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyFile, name,
		)
	}

	return bundle
}

// Labeler translates calendar label keys for one language. It satisfies
// calendar.Labels.
type Labeler struct {
	loc *goi18n.Localizer
}

// NewLabeler returns a Labeler for lang, falling back to English for any
// missing translation.
func NewLabeler(bundle *goi18n.Bundle, lang string) *Labeler {
	slog.Debug(config.MsgLocaleSelect,
		config.LogKeyComponent, config.CompI18n,
		config.LogKeyLang, lang,
	)
	return &Labeler{loc: goi18n.NewLocalizer(bundle, lang, config.DefaultLocale)}
}

func (l *Labeler) Today() string    { return l.get(config.TKeyToday, nil) }
func (l *Labeler) Tomorrow() string { return l.get(config.TKeyTomorrow, nil) }

// Weekday returns the localized weekday name.
func (l *Labeler) Weekday(wd time.Weekday) string {
	return l.get(config.TKeyWeekdayPrefix+strings.ToLower(wd.String()), nil)
}

// Exchange formats the synthesized handover pseudo-event title for a
// clock-time string such as "17:00".
func (l *Labeler) Exchange(clock string) string {
	return l.get(config.TKeyExchange, map[string]string{"Time": clock})
}

func (l *Labeler) get(key string, data map[string]string) string {
	msg, err := l.loc.Localize(&goi18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}
