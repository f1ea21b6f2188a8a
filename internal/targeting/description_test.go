package targeting

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func sampleCriteria() Criteria {
	return Criteria{
		JobTitles:   []string{"CEO"},
		Industries:  []string{"Technology"},
		Locations:   []string{"India"},
		CompanySize: "11-50 employees",
	}
}

func TestValidate_Structured(t *testing.T) {
	if err := Structured(sampleCriteria()).Validate(); err != nil {
		t.Fatalf("expected valid criteria, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *Criteria)
	}{
		{"no job titles", func(c *Criteria) { c.JobTitles = nil }},
		{"blank industries", func(c *Criteria) { c.Industries = []string{"  ", ""} }},
		{"no locations", func(c *Criteria) { c.Locations = []string{} }},
		{"no company size", func(c *Criteria) { c.CompanySize = " " }},
		{"unknown company size", func(c *Criteria) { c.CompanySize = "7 employees" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := sampleCriteria()
			tc.mutate(&c)
			err := Structured(c).Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidate_StructuredMissingCriteria(t *testing.T) {
	err := Description{Mode: ModeStructured}.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidate_Freeform(t *testing.T) {
	if err := Freeform("SaaS founders in Berlin").Validate(); err != nil {
		t.Fatalf("expected valid freeform, got %v", err)
	}
	for _, text := range []string{"", "   ", "\n\t"} {
		if err := Freeform(text).Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("text %q: expected ErrValidation, got %v", text, err)
		}
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	if err := (Description{Mode: "dropdown", Text: "x"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidate_SchemaRejectsOversizedLists(t *testing.T) {
	c := sampleCriteria()
	c.Locations = nil
	for i := 0; i < 30; i++ {
		c.Locations = append(c.Locations, fmt.Sprintf("City %d", i))
	}
	if err := Structured(c).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for 30 locations, got %v", err)
	}
}

func TestReadable(t *testing.T) {
	c := Criteria{
		JobTitles:   []string{"CEO", "CTO"},
		Industries:  []string{"Technology"},
		Locations:   []string{"India", "Singapore"},
		CompanySize: "11-50 employees",
	}
	got := Structured(c).Readable()
	want := "Job titles: CEO, CTO | Industries: Technology | Locations: India, Singapore | Company size: 11-50 employees"
	if got != want {
		t.Errorf("Readable:\n got %q\nwant %q", got, want)
	}
	if got := Freeform("  fintech CFOs  ").Readable(); got != "fintech CFOs" {
		t.Errorf("freeform Readable: got %q", got)
	}
}

func TestSummary(t *testing.T) {
	got := Structured(sampleCriteria()).Summary()
	if got != "CEO in Technology from India (11-50 employees)" {
		t.Errorf("Summary: got %q", got)
	}
	if got := Freeform("").Summary(); got != "Lead generation request" {
		t.Errorf("empty Summary: got %q", got)
	}
}

func TestRequestType(t *testing.T) {
	if got := Structured(sampleCriteria()).RequestType(); got != "dropdown" {
		t.Errorf("structured: got %q", got)
	}
	if got := Freeform("x").RequestType(); got != "manual" {
		t.Errorf("freeform: got %q", got)
	}
}

// Every non-empty combination of selections must survive Encode -> Parse.
func TestEncodeParse_RoundTrip(t *testing.T) {
	titles := [][]string{{"CEO"}, {"CEO", "CTO"}, {"Head of Growth", "VP of Sales", "Founder"}}
	industries := [][]string{{"Technology"}, {"Finance", "Healthcare"}}
	locations := [][]string{{"India"}, {"New York", "London, UK"}}

	for _, ti := range titles {
		for _, in := range industries {
			for _, lo := range locations {
				for _, size := range CompanySizes {
					c := Criteria{JobTitles: ti, Industries: in, Locations: lo, CompanySize: size}
					enc, err := Structured(c).Encode()
					if err != nil {
						t.Fatalf("Encode: %v", err)
					}
					got := Parse(enc)
					if got.Mode != ModeStructured || got.Criteria == nil {
						t.Fatalf("Parse(%s): expected structured, got %+v", enc, got)
					}
					if !reflect.DeepEqual(*got.Criteria, c) {
						t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got.Criteria, c)
					}
				}
			}
		}
	}
}

func TestEncodeParse_Freeform(t *testing.T) {
	enc, err := Freeform("Marketing heads at D2C brands").Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := Parse(enc)
	if got.Mode != ModeFreeform || got.Text != "Marketing heads at D2C brands" {
		t.Errorf("got %+v", got)
	}
}

func TestParse_Legacy(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Criteria
	}{
		{
			name: "string company size",
			raw:  `{"Job titles":["CEO"],"Industries":["Technology"],"Locations":["India"],"Company size":"11-50 employees"}`,
			want: sampleCriteria(),
		},
		{
			name: "array company size",
			raw:  `{"Job titles":["CEO"],"Industries":["Technology"],"Locations":["India"],"Company size":["11-50 employees"]}`,
			want: sampleCriteria(),
		},
		{
			name: "partially written",
			raw:  `{"Job titles": ["CEO", "CTO"], "Industries": ["Technology"], "Locations": ["India"], "Company size": "11-50 employees"`,
			want: Criteria{JobTitles: []string{"CEO", "CTO"}, Industries: []string{"Technology"}, Locations: []string{"India"}, CompanySize: "11-50 employees"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.raw)
			if got.Mode != ModeStructured || got.Criteria == nil {
				t.Fatalf("expected structured, got %+v", got)
			}
			if !reflect.DeepEqual(*got.Criteria, tc.want) {
				t.Errorf("got %+v, want %+v", *got.Criteria, tc.want)
			}
		})
	}
}

func TestParse_FallsBackToRawText(t *testing.T) {
	cases := []string{
		"Looking for CTOs at fintech startups",
		`{"mode":"structured"}`,
		`{"unrelated":true}`,
		`{"Job titles": [`,
		`[1,2,3]`,
		"{not json at all",
	}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			got := Parse(raw)
			if got.Mode != ModeFreeform {
				t.Fatalf("expected freeform fallback, got %+v", got)
			}
			if got.Text != raw {
				t.Errorf("expected raw text preserved, got %q", got.Text)
			}
		})
	}
}

func TestLoadOptions(t *testing.T) {
	o, err := LoadOptions()
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if !reflect.DeepEqual(o.CompanySizes, CompanySizes) {
		t.Errorf("company sizes: got %v", o.CompanySizes)
	}
	if len(o.JobTitles) == 0 || len(o.Industries) == 0 || len(o.Locations) == 0 {
		t.Errorf("expected non-empty catalog, got %+v", o)
	}
	if _, err := parseOptions([]byte("job_titles: [CEO]\n")); err == nil || !strings.Contains(err.Error(), "non-empty") {
		t.Errorf("expected non-empty error, got %v", err)
	}
}
