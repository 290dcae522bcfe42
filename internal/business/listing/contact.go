package listing

import (
	"net/url"
	"strings"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Contact is one entry of a listing's contactInfo with its chat link.
type Contact struct {
	Value    string `json:"value"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// Contacts splits contactInfo on commas, dropping blanks.
func Contacts(l model.Listing) []Contact {
	var out []Contact
	for _, part := range strings.Split(l.ContactInfo, ",") {
		v := strings.TrimSpace(part)
		if v == "" {
			continue
		}
		out = append(out, Contact{Value: v, WhatsApp: WhatsAppLink(v, l.Title)})
	}
	return out
}

// WhatsAppLink builds a wa.me deep link with an enquiry message, or "" when
// the contact has no digits (e.g. an email address).
func WhatsAppLink(contact, title string) string {
	if strings.Contains(contact, "@") {
		return ""
	}
	var digits strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	msg := "Hi, I'm interested in your room listing: \"" + title + "\" on MyRoom app."
	return "https://wa.me/" + digits.String() + "?text=" + url.QueryEscape(msg)
}
