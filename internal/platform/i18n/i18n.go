// Package i18n provides English and French message catalogs for API
// responses and generated documents, with per-request locale negotiation.
package i18n

import (
	"github.com/labstack/echo/v4"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

const (
	LocaleEN = "en"
	LocaleFR = "fr"
)

// Translator resolves message IDs against the bundled en/fr catalogs.
type Translator struct {
	bundle        *goi18n.Bundle
	defaultLocale string
}

// New builds a Translator with the built-in message catalogs. defaultLocale
// is used when negotiation finds nothing usable.
func New(defaultLocale string) *Translator {
	if defaultLocale != LocaleEN && defaultLocale != LocaleFR {
		defaultLocale = LocaleEN
	}

	bundle := goi18n.NewBundle(language.English)
	mustAdd(bundle, language.English, englishMessages)
	mustAdd(bundle, language.French, frenchMessages)

	return &Translator{bundle: bundle, defaultLocale: defaultLocale}
}

func mustAdd(bundle *goi18n.Bundle, tag language.Tag, messages []*goi18n.Message) {
	if err := bundle.AddMessages(tag, messages...); err != nil {
		panic(err)
	}
}

// T translates a message ID for the given locale. Unknown IDs fall back to
// the ID itself so a missing translation never breaks a response.
func (t *Translator) T(locale, messageID string) string {
	localizer := goi18n.NewLocalizer(t.bundle, locale, t.defaultLocale)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// Tf translates a message ID with template data.
func (t *Translator) Tf(locale, messageID string, data map[string]interface{}) string {
	localizer := goi18n.NewLocalizer(t.bundle, locale, t.defaultLocale)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// DefaultLocale returns the fallback locale the Translator was built with.
func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// Negotiate determines the locale for a request. Precedence: the lang query
// parameter, the locale carried in the access token, the Accept-Language
// header, then the configured default.
func (t *Translator) Negotiate(c echo.Context) string {
	if lang := c.QueryParam("lang"); isSupported(lang) {
		return lang
	}

	if locale := auth.LocaleFromContext(c.Request().Context()); isSupported(locale) {
		return locale
	}

	if header := c.Request().Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			for _, tag := range tags {
				base, _ := tag.Base()
				if isSupported(base.String()) {
					return base.String()
				}
			}
		}
	}

	return t.defaultLocale
}

func isSupported(locale string) bool {
	return locale == LocaleEN || locale == LocaleFR
}
