package utils

import (
	"net/url"
	"strings"
)

// WhatsAppLink builds a wa.me deep link with a prefilled message.
// Returns "" when no business number is configured.
func WhatsAppLink(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
