package targeting

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Keys of the legacy un-tagged structured encoding.
const (
	legacyJobTitles   = "Job titles"
	legacyIndustries  = "Industries"
	legacyLocations   = "Locations"
	legacyCompanySize = "Company size"
)

var (
	partialJobTitles   = regexp.MustCompile(`"Job titles":\s*\[([^\]]+)\]`)
	partialIndustries  = regexp.MustCompile(`"Industries":\s*\[([^\]]+)\]`)
	partialLocations   = regexp.MustCompile(`"Locations":\s*\[([^\]]+)\]`)
	partialCompanySize = regexp.MustCompile(`"Company size":\s*"([^"]+)"`)
)

// Parse recovers a Description from a stored lead_description. It never
// fails: anything it cannot interpret comes back as freeform raw text.
func Parse(raw string) Description {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Freeform("")
	}

	if strings.HasPrefix(trimmed, "{") {
		var tagged Description
		if err := json.Unmarshal([]byte(trimmed), &tagged); err == nil {
			switch {
			case tagged.Mode == ModeStructured && tagged.Criteria != nil:
				return tagged.Normalize()
			case tagged.Mode == ModeFreeform:
				return tagged.Normalize()
			}
		}

		var legacy map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &legacy); err == nil {
			if c, ok := fromLegacy(legacy); ok {
				return Structured(c).Normalize()
			}
			return Freeform(raw)
		}
	}

	if strings.Contains(raw, `"`+legacyJobTitles+`"`) || strings.Contains(raw, `"`+legacyIndustries+`"`) {
		if c, ok := fromPartial(raw); ok {
			return Structured(c).Normalize()
		}
	}
	return Freeform(raw)
}

func fromLegacy(m map[string]json.RawMessage) (Criteria, bool) {
	var c Criteria
	found := false
	if v, ok := m[legacyJobTitles]; ok {
		c.JobTitles, found = stringList(v), true
	}
	if v, ok := m[legacyIndustries]; ok {
		c.Industries, found = stringList(v), true
	}
	if v, ok := m[legacyLocations]; ok {
		c.Locations, found = stringList(v), true
	}
	if v, ok := m[legacyCompanySize]; ok {
		found = true
		// Older rows stored the size as a single-element array.
		if sizes := stringList(v); len(sizes) > 0 {
			c.CompanySize = strings.Join(sizes, ", ")
		}
	}
	return c, found
}

// stringList accepts a JSON string or array of strings.
func stringList(v json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(v, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

func fromPartial(raw string) (Criteria, bool) {
	var c Criteria
	if m := partialJobTitles.FindStringSubmatch(raw); m != nil {
		c.JobTitles = splitQuoted(m[1])
	}
	if m := partialIndustries.FindStringSubmatch(raw); m != nil {
		c.Industries = splitQuoted(m[1])
	}
	if m := partialLocations.FindStringSubmatch(raw); m != nil {
		c.Locations = splitQuoted(m[1])
	}
	if m := partialCompanySize.FindStringSubmatch(raw); m != nil {
		c.CompanySize = m[1]
	}
	ok := len(c.JobTitles) > 0 || len(c.Industries) > 0 || len(c.Locations) > 0 || c.CompanySize != ""
	return c, ok
}

func splitQuoted(s string) []string {
	parts := strings.Split(strings.ReplaceAll(s, `"`, ""), ",")
	return cleanList(parts)
}
