package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ContactStatusActive = "active"
)

type ContactList struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	TotalContacts int       `json:"total_contacts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Contact struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	ListID       uuid.UUID       `json:"list_id"`
	Email        string          `json:"email"`
	FirstName    *string         `json:"first_name,omitempty"`
	LastName     *string         `json:"last_name,omitempty"`
	CustomFields json.RawMessage `json:"custom_fields"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
