package targeting

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed criteria.schema.json
var criteriaSchemaJSON string

var criteriaSchema = jsonschema.MustCompileString("https://tasknova.io/schemas/targeting.criteria", criteriaSchemaJSON)

// validateCriteriaSchema rejects criteria the automation cannot consume
// (oversized lists, overlong values).
func validateCriteriaSchema(c *Criteria) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := criteriaSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
