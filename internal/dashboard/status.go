package dashboard

import (
	"strings"

	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/targeting"
)

type StatusKind string

const (
	StatusInProgress StatusKind = "in_progress"
	StatusSuccess    StatusKind = "success"
	StatusError      StatusKind = "error"
	StatusOther      StatusKind = "other"
)

type StatusView struct {
	Kind  StatusKind `json:"kind"`
	Label string     `json:"label"`
}

// ViewStatus maps the free-form lead status onto a display category.
// Matching is case-insensitive; unknown values are shown verbatim.
func ViewStatus(status string) StatusView {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == models.LeadStatusRunning:
		return StatusView{Kind: StatusInProgress, Label: "Running"}
	case s == models.LeadStatusCompleted:
		return StatusView{Kind: StatusSuccess, Label: "Completed"}
	case strings.HasPrefix(s, models.LeadStatusFailed) || s == models.LeadStatusError:
		return StatusView{Kind: StatusError, Label: "Error. Our team will connect with you."}
	case s == "":
		return StatusView{Kind: StatusOther, Label: "Pending"}
	}
	return StatusView{Kind: StatusOther, Label: status}
}

// OrderDisplayStatus is the badge text for a payment order.
func OrderDisplayStatus(status string) string {
	switch status {
	case models.PaymentStatusSuccess:
		return "Paid"
	case models.PaymentStatusFailed:
		return "Failed"
	}
	return "Pending"
}

type LeadRequestView struct {
	*models.LeadRequest
	Summary     string                `json:"summary"`
	Description targeting.Description `json:"description"`
	StatusView  StatusView            `json:"status_view"`
}

func NewLeadRequestView(lr *models.LeadRequest) LeadRequestView {
	d := targeting.Parse(lr.LeadDescription)
	return LeadRequestView{
		LeadRequest: lr,
		Summary:     d.Summary(),
		Description: d,
		StatusView:  ViewStatus(lr.Status),
	}
}

func LeadRequestViews(list []*models.LeadRequest) []LeadRequestView {
	out := make([]LeadRequestView, 0, len(list))
	for _, lr := range list {
		out = append(out, NewLeadRequestView(lr))
	}
	return out
}

type OrderView struct {
	*models.PaymentOrder
	DisplayStatus string `json:"display_status"`
	AmountLabel   string `json:"amount_label"`
}

func NewOrderView(o *models.PaymentOrder) OrderView {
	return OrderView{PaymentOrder: o, DisplayStatus: OrderDisplayStatus(o.Status), AmountLabel: models.FormatRupees(o.Amount)}
}

func OrderViews(list []*models.PaymentOrder) []OrderView {
	out := make([]OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, NewOrderView(o))
	}
	return out
}
