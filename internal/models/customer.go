package models

import (
	"strings"
	"time"
)

// DefaultRecipientName is used when a customer has no display name
const DefaultRecipientName = "Customer"

// Customer represents a customer in the directory
type Customer struct {
	ID          int       `json:"id" db:"id"`
	Name        *string   `json:"name,omitempty" db:"name"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Mobile      *string   `json:"mobile,omitempty" db:"mobile"`
	TotalOrders int       `json:"total_orders" db:"total_orders"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DisplayName returns the customer's name, or the generic placeholder
func (c *Customer) DisplayName() string {
	if c.Name != nil {
		if name := strings.TrimSpace(*c.Name); name != "" {
			return name
		}
	}
	return DefaultRecipientName
}

// ContactFor returns the address used to reach the customer on a channel.
// The second return is false when the customer has no such contact.
func (c *Customer) ContactFor(channel Channel) (string, bool) {
	var contact *string
	switch channel {
	case ChannelEmail:
		contact = c.Email
	case ChannelSMS:
		contact = c.Mobile
	}

	if contact == nil {
		return "", false
	}
	value := strings.TrimSpace(*contact)
	return value, value != ""
}
