package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payment order status values.
const (
	PaymentStatusCreated = "created"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

type PaymentOrder struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	UserEmail      string     `json:"user_email"`
	PackageID      string     `json:"package_id"`
	Amount         int64      `json:"amount"` // paise
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	LeadsCount     int        `json:"leads_count"`
	GatewayOrderID *string    `json:"gateway_order_id,omitempty"`
	PaymentID      *string    `json:"payment_id,omitempty"`
	Signature      *string    `json:"-"`
	CustomerPhone  *string    `json:"customer_phone,omitempty"`
	LeadRequestID  *uuid.UUID `json:"lead_request_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FormatRupees renders a paise amount, e.g. 39900 -> "₹399".
func FormatRupees(paise int64) string {
	if paise%100 != 0 {
		return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
	}
	return fmt.Sprintf("₹%d", paise/100)
}
