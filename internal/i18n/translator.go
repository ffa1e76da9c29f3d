package i18n

import (
	"embed"

	"github.com/charmbracelet/log"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/gravadigital/eventsoft-api/internal/logger"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator renders the mail texts from the embedded catalogs
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             *log.Logger
}

// NewTranslator loads the catalogs with defaultLocale as the fallback language
func NewTranslator(defaultLocale string) *Translator {
	l := logger.Service("i18n")

	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.Spanish
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.es.toml", "active.en.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			l.Error("Failed to load message file", "file", file, "error", err)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
		log:             l,
	}
}

// Locale is the default locale tag
func (t *Translator) Locale() string {
	return t.defaultLanguage.String()
}

// T renders key for locale, falling back to the default locale and then to the key itself
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.log.Warn("Localize failed", "key", key, "locales", languages, "error", err)
		return key
	}
	return msg
}
