// Package contact parses shared WhatsApp contact cards (vCard) and
// normalizes phone numbers to canonical international form.
package contact

import (
	"regexp"
	"strings"
)

// Card is a parsed shared contact.
type Card struct {
	Name  string
	Phone string
}

var phoneCleanRe = regexp.MustCompile(`[\s\-().]`)

// NormalizePhone converts raw input to +<digits> international form.
// A leading zero is replaced by the default country code; bare local
// numbers are prefixed with it. Returns false when the input is not a
// plausible phone number.
func NormalizePhone(raw, countryCode string) (string, bool) {
	s := phoneCleanRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return "", false
	}
	plus := strings.HasPrefix(s, "+")
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", false
	}
	if len(s) < 7 || len(s) > 15 {
		return "", false
	}
	switch {
	case plus:
		// already international
	case strings.HasPrefix(s, "0"):
		s = countryCode + s[1:]
	case strings.HasPrefix(s, countryCode):
		// already has country code, just missing the plus
	default:
		s = countryCode + s
	}
	if len(s) < 9 || len(s) > 15 {
		return "", false
	}
	return "+" + s, true
}

// IsVCard reports whether the text looks like vCard content.
func IsVCard(body string) bool {
	return strings.Contains(strings.ToUpper(body), "BEGIN:VCARD")
}

var (
	fnRe  = regexp.MustCompile(`(?mi)^FN[^:]*:(.+)$`)
	telRe = regexp.MustCompile(`(?mi)^TEL[^:]*:(.+)$`)
)

// ParseVCard extracts the display name and first phone number from vCard
// content. The phone is normalized with countryCode.
func ParseVCard(body, countryCode string) (*Card, bool) {
	if !IsVCard(body) {
		return nil, false
	}
	var card Card
	if m := fnRe.FindStringSubmatch(body); m != nil {
		card.Name = strings.TrimSpace(m[1])
	}
	for _, m := range telRe.FindAllStringSubmatch(body, -1) {
		if phone, ok := NormalizePhone(m[1], countryCode); ok {
			card.Phone = phone
			break
		}
	}
	if card.Phone == "" {
		return nil, false
	}
	if card.Name == "" {
		card.Name = card.Phone
	}
	return &card, true
}
