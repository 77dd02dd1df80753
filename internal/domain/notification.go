package domain

import "time"

// Notification is an engine-produced message for a single recipient. Clients
// never create notifications; they can only mark their own as read.
type Notification struct {
	ID        uint64    `json:"id"`
	Recipient Principal `json:"recipient"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
	IsRead    bool      `json:"isRead"`
}
