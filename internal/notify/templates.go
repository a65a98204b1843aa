package notify

import (
	"fmt"
	"strings"

	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// Supported notification locales; anything else falls back to English.
const (
	LocaleEN = "en"
	LocaleIT = "it"
)

var templates = map[domain.EventKind]map[string]string{
	domain.EventKindInboundCreated: {
		LocaleEN: "Inbound shipment %q has been created.",
		LocaleIT: "La spedizione in entrata %q è stata creata.",
	},
	domain.EventKindInboundReceived: {
		LocaleEN: "Inbound shipment %q has been received at the warehouse.",
		LocaleIT: "La spedizione in entrata %q è stata ricevuta in magazzino.",
	},
	domain.EventKindOutboundCreated: {
		LocaleEN: "Outbound shipment %q has been created.",
		LocaleIT: "La spedizione in uscita %q è stata creata.",
	},
	domain.EventKindOutboundClosed: {
		LocaleEN: "Outbound shipment %q has been closed and shipped.",
		LocaleIT: "La spedizione in uscita %q è stata chiusa e spedita.",
	},
}

// RenderMessage builds the localized notification text for an event kind.
// Unknown locales fall back to English; the second return reports whether a
// template exists for the kind at all.
func RenderMessage(kind domain.EventKind, locale, shipmentName string) (string, bool) {
	byLocale, ok := templates[kind]
	if !ok {
		return "", false
	}

	template, ok := byLocale[normalizeLocale(locale)]
	if !ok {
		template = byLocale[LocaleEN]
	}
	return fmt.Sprintf(template, shipmentName), true
}

func normalizeLocale(locale string) string {
	// "it-IT" and friends count as Italian.
	locale = strings.ToLower(locale)
	if strings.HasPrefix(locale, LocaleIT) {
		return LocaleIT
	}
	return LocaleEN
}
