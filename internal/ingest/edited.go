package ingest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
)

// editedItemSchema is the boundary contract for reviewer edit payloads.
// Price stays a decimal string so "8,50" survives the wire untouched; it is
// parsed numerically exactly once, here.
const editedItemSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"name":        {"type": "string", "minLength": 1, "maxLength": 200},
		"price":       {"type": "string", "pattern": "^[0-9]{1,7}([.,][0-9]{1,2})?$"},
		"category":    {"type": "string", "maxLength": 100},
		"description": {"type": "string", "maxLength": 2000},
		"options":     {"type": "object"}
	}
}`

var compiledEditedSchema = jsonschema.MustCompileString("edited_item.json", editedItemSchema)

// ValidateEditedData checks an EDIT override payload once, at the boundary.
// Everything downstream (publish included) may trust a payload that passed.
func ValidateEditedData(e *entity.EditedItemData) error {
	if e == nil {
		return common.ValidationErrorf("edit action requires an edited_data payload")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return common.ValidationErrorf("edited_data not serializable: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return common.ValidationErrorf("edited_data is not well-formed JSON: %v", err)
	}
	if err := compiledEditedSchema.Validate(doc); err != nil {
		return common.ValidationErrorf("edited_data rejected: %v", err)
	}
	return nil
}

// ParseEditedPrice converts a validated price override into a float, accepting
// both German comma and dot decimal notation.
func ParseEditedPrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, common.ValidationErrorf("edited price %q is not numeric", s)
	}
	return v, nil
}
