package logging

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" -> "jo***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone keeps only the last four digits of a phone number.
// "+254700000123" -> "***0123"
func RedactPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}

// Redactor masks contact identifiers when enabled
type Redactor struct {
	Enabled bool
}

// Contact masks an email or phone number depending on its shape
func (r Redactor) Contact(contact string) string {
	if !r.Enabled {
		return contact
	}
	if strings.Contains(contact, "@") {
		return RedactEmail(contact)
	}
	return RedactPhone(contact)
}
