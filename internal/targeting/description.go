// Package targeting models the lead-targeting criteria a user submits, in
// either structured (multi-select) or freeform (text) mode, and the
// canonical tagged encoding stored in lead_requests.lead_description.
package targeting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ModeStructured = "structured"
	ModeFreeform   = "freeform"
)

// CompanySizes are the selectable company-size buckets.
var CompanySizes = []string{
	"1-10 employees",
	"11-50 employees",
	"51-200 employees",
	"201-500 employees",
	"501-1000 employees",
	"1000+ employees",
}

// ErrValidation is wrapped by every Validate failure.
var ErrValidation = errors.New("validation failed")

type Criteria struct {
	JobTitles   []string `json:"job_titles"`
	Industries  []string `json:"industries"`
	Locations   []string `json:"locations"`
	CompanySize string   `json:"company_size"`
}

// Description is the tagged targeting payload: exactly one of Criteria
// (structured) or Text (freeform) is meaningful, selected by Mode.
type Description struct {
	Mode     string    `json:"mode"`
	Criteria *Criteria `json:"criteria,omitempty"`
	Text     string    `json:"text,omitempty"`
}

func Structured(c Criteria) Description {
	return Description{Mode: ModeStructured, Criteria: &c}
}

func Freeform(text string) Description {
	return Description{Mode: ModeFreeform, Text: text}
}

// Normalize trims every value and drops blank selections.
func (d Description) Normalize() Description {
	switch d.Mode {
	case ModeStructured:
		if d.Criteria == nil {
			return d
		}
		c := Criteria{
			JobTitles:   cleanList(d.Criteria.JobTitles),
			Industries:  cleanList(d.Criteria.Industries),
			Locations:   cleanList(d.Criteria.Locations),
			CompanySize: strings.TrimSpace(d.Criteria.CompanySize),
		}
		return Description{Mode: ModeStructured, Criteria: &c}
	case ModeFreeform:
		return Description{Mode: ModeFreeform, Text: strings.TrimSpace(d.Text)}
	}
	return d
}

// Validate reports whether the description may be submitted. Structured
// mode needs all four categories; freeform needs non-blank text.
func (d Description) Validate() error {
	d = d.Normalize()
	switch d.Mode {
	case ModeStructured:
		if d.Criteria == nil {
			return fmt.Errorf("%w: criteria are required", ErrValidation)
		}
		var missing []string
		if len(d.Criteria.JobTitles) == 0 {
			missing = append(missing, "job titles")
		}
		if len(d.Criteria.Industries) == 0 {
			missing = append(missing, "industries")
		}
		if len(d.Criteria.Locations) == 0 {
			missing = append(missing, "locations")
		}
		if d.Criteria.CompanySize == "" {
			missing = append(missing, "company size")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: select at least one value for %s", ErrValidation, strings.Join(missing, ", "))
		}
		if !isCompanySize(d.Criteria.CompanySize) {
			return fmt.Errorf("%w: unknown company size %q", ErrValidation, d.Criteria.CompanySize)
		}
		return validateCriteriaSchema(d.Criteria)
	case ModeFreeform:
		if d.Text == "" {
			return fmt.Errorf("%w: description is required", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: mode must be %q or %q", ErrValidation, ModeStructured, ModeFreeform)
}

// Readable is the human-readable line sent to the automation.
func (d Description) Readable() string {
	d = d.Normalize()
	if d.Mode == ModeStructured && d.Criteria != nil {
		c := d.Criteria
		return fmt.Sprintf("Job titles: %s | Industries: %s | Locations: %s | Company size: %s",
			strings.Join(c.JobTitles, ", "), strings.Join(c.Industries, ", "),
			strings.Join(c.Locations, ", "), c.CompanySize)
	}
	return d.Text
}

// Summary is the one-line dashboard rendering.
func (d Description) Summary() string {
	d = d.Normalize()
	if d.Mode != ModeStructured || d.Criteria == nil {
		if d.Text == "" {
			return "Lead generation request"
		}
		return d.Text
	}
	c := d.Criteria
	var parts []string
	if len(c.JobTitles) > 0 {
		parts = append(parts, strings.Join(c.JobTitles, ", "))
	}
	if len(c.Industries) > 0 {
		parts = append(parts, "in "+strings.Join(c.Industries, ", "))
	}
	if len(c.Locations) > 0 {
		parts = append(parts, "from "+strings.Join(c.Locations, ", "))
	}
	if c.CompanySize != "" {
		parts = append(parts, "("+c.CompanySize+")")
	}
	if len(parts) == 0 {
		return "Lead generation request"
	}
	return strings.Join(parts, " ")
}

// RequestType is the automation's mode tag.
func (d Description) RequestType() string {
	if d.Mode == ModeStructured {
		return "dropdown"
	}
	return "manual"
}

// Encode returns the canonical at-rest form.
func (d Description) Encode() (string, error) {
	b, err := json.Marshal(d.Normalize())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isCompanySize(s string) bool {
	for _, v := range CompanySizes {
		if v == s {
			return true
		}
	}
	return false
}
