package contacts

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/tasknova/leadgen/internal/models"
)

// Import row states.
const (
	RowValid     = "valid"
	RowInvalid   = "invalid"
	RowDuplicate = "duplicate"
)

var (
	ErrEmptyFile    = errors.New("csv file is empty")
	ErrNoEmailField = errors.New("csv header must include an email column")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the same loose check the import preview uses.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ImportRow is one parsed data line of an uploaded CSV.
type ImportRow struct {
	Line         int               `json:"line"`
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	CustomFields map[string]string `json:"custom_fields"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
}

// ParseImport reads a contact CSV. The header row names the columns; email,
// first_name and last_name are mapped to fields and the rest are kept as
// custom fields. existing holds lower-cased emails already in the list.
func ParseImport(r io.Reader, existing map[string]struct{}) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	emailCol := indexOf(header, "email")
	if emailCol < 0 {
		return nil, ErrNoEmailField
	}

	seen := make(map[string]struct{})
	var rows []ImportRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		row := ImportRow{Line: line, CustomFields: map[string]string{}, Status: RowValid}
		for i, h := range header {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			switch h {
			case "email":
				row.Email = v
			case "first_name":
				row.FirstName = v
			case "last_name":
				row.LastName = v
			default:
				if h != "" {
					row.CustomFields[h] = v
				}
			}
		}

		key := strings.ToLower(row.Email)
		_, inList := existing[key]
		_, inFile := seen[key]
		switch {
		case !ValidEmail(row.Email):
			row.Status, row.Error = RowInvalid, "Invalid email address"
		case inList || inFile:
			row.Status, row.Error = RowDuplicate, "Email already exists"
		default:
			seen[key] = struct{}{}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func (r ImportRow) contact(list *models.ContactList) *models.Contact {
	fields, _ := json.Marshal(r.CustomFields)
	return &models.Contact{
		UserID:       list.UserID,
		ListID:       list.ID,
		Email:        r.Email,
		FirstName:    optional(r.FirstName),
		LastName:     optional(r.LastName),
		CustomFields: fields,
		Status:       models.ContactStatusActive,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var exportHeader = []string{"email", "first_name", "last_name", "status", "created_at"}

// WriteCSV renders contacts in the export column order.
func WriteCSV(w io.Writer, list []*models.Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, c := range list {
		rec := []string{c.Email, deref(c.FirstName), deref(c.LastName), c.Status, c.CreatedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportFilename is the attachment name for a list export.
func ExportFilename(listName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			return '_'
		}
		return r
	}, strings.TrimSpace(listName))
	if name == "" {
		name = "export"
	}
	return "contacts-" + name + ".csv"
}

func exportBuffer(list []*models.Contact) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, list); err != nil {
		return nil, err
	}
	return &buf, nil
}
