package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lead request status values written by this service or the automation.
const (
	LeadStatusRunning   = "running"
	LeadStatusCompleted = "completed"
	LeadStatusFailed    = "failed"
	LeadStatusError     = "error"
)

type LeadRequest struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	UserEmail       string          `json:"user_email"`
	UserName        string          `json:"user_name"`
	LeadDescription string          `json:"lead_description"`
	Status          string          `json:"status"`
	IsFreeRequest   bool            `json:"is_free_request"`
	LeadCount       int             `json:"lead_count"`
	JSONData        json.RawMessage `json:"json_data,omitempty"`
	JSONURL         *string         `json:"json_url,omitempty"`
	DownloadableURL *string         `json:"downloadable_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
