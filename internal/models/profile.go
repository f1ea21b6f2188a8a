package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-account entitlement and display record.
type Profile struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      *string   `json:"full_name,omitempty"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	FreeLeadsUsed bool      `json:"free_leads_used"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName returns the full name, or the email when no name is set.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}
