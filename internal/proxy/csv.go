package proxy

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page is one window of a parsed CSV document.
type Page struct {
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	TotalRows int        `json:"total_rows"`
}

// ParseCSV splits data into a header row and records. Ragged rows are
// padded or truncated to the header width.
func ParseCSV(data []byte) ([]string, [][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return []string{}, [][]string{}, nil
	}
	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		row := make([]string, len(headers))
		copy(row, rec)
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// Paginate returns the 1-based page of rows. Out-of-range pages are empty.
func Paginate(headers []string, rows [][]string, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	p := Page{Headers: headers, Rows: [][]string{}, Page: page, PageSize: pageSize, TotalRows: len(rows)}
	if page-1 >= (len(rows)+pageSize-1)/pageSize {
		return p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(rows))
	p.Rows = rows[start:end]
	return p
}
