package models

import (
	"time"

	"github.com/google/uuid"
)

// Onboarding enums.
var (
	Industries      = []string{"tech", "finance", "health", "education", "retail", "manufacturing", "consulting", "marketing", "other"}
	Roles           = []string{"founder", "developer", "marketer", "student", "manager", "consultant", "other"}
	ReferralSources = []string{"google", "youtube", "friend", "newsletter", "social_media", "advertisement", "other"}
)

type BusinessProfile struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	BusinessName    string    `json:"business_name"`
	Role            string    `json:"role"`
	Industry        string    `json:"industry"`
	EmployeeCount   *int      `json:"employee_count,omitempty"`
	BusinessGoal    *string   `json:"business_goal,omitempty"`
	ReferralSources []string  `json:"referral_sources"`
	Phone           string    `json:"phone"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
