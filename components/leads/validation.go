package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Payload kinds understood by PayloadValidator.
const (
	PayloadAllQuotations  = "all_quotations"
	PayloadUserQuotations = "user_quotations"
)

// ResponseValidator checks a raw backend response before it is decoded into typed records.
type ResponseValidator interface {
	Validate(kind string, raw []byte) error
}

// PayloadValidator compiles the response schemas once and validates raw JSON against them.
type PayloadValidator struct {
	mu       sync.RWMutex
	schemas  map[string]string
	compiled map[string]*jsonschema.Schema
}

// NewPayloadValidator builds a validator for the quotations API responses.
func NewPayloadValidator() *PayloadValidator {
	return &PayloadValidator{
		schemas: map[string]string{
			PayloadAllQuotations:  allQuotationsSchema,
			PayloadUserQuotations: userQuotationsSchema,
		},
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate fails closed: unknown kinds, malformed JSON and shape mismatches all return ErrInvalidPayload.
func (v *PayloadValidator) Validate(kind string, raw []byte) error {
	schema, err := v.schemaFor(kind)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrInvalidPayload, kind, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, kind, err)
	}
	return nil
}

func (v *PayloadValidator) schemaFor(kind string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[kind]
	source, known := v.schemas[kind]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: unknown payload kind %q", ErrInvalidPayload, kind)
	}
	compiler := jsonschema.NewCompiler()
	name := kind + ".json"
	if err := compiler.AddResource(name, bytes.NewReader([]byte(source))); err != nil {
		return nil, fmt.Errorf("leads: load schema %s: %w", kind, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("leads: compile schema %s: %w", kind, err)
	}
	v.mu.Lock()
	v.compiled[kind] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// CheckLeadIDs rejects a payload in which two leads share a user_details.id.
func CheckLeadIDs(payload QuotationPayload) error {
	seen := make(map[int]struct{}, len(payload.Users))
	for _, user := range payload.Users {
		id := user.UserDetails.ID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s: duplicate lead id %d", ErrInvalidPayload, PayloadAllQuotations, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type noopValidator struct{}

func (noopValidator) Validate(string, []byte) error { return nil }

// NoopValidator accepts every payload. Decoding and the lead id check still apply.
func NoopValidator() ResponseValidator { return noopValidator{} }

const quotationDefs = `
  "quotation": {
    "type": "object",
    "required": ["quotation_details"],
    "properties": {
      "quotation_details": {
        "type": "object",
        "required": ["id", "status"],
        "properties": {
          "id": {"type": "integer"},
          "status": {"enum": ["draft", "submitted"]},
          "created_at": {"type": ["string", "null"]},
          "include_maternity": {"enum": [0, 1]}
        }
      },
      "hr_plans": {
        "type": ["object", "null"],
        "additionalProperties": {
          "type": "object",
          "properties": {
            "total_lives": {"type": "integer", "minimum": 0},
            "total_premium": {"type": "number"}
          }
        }
      },
      "maternity_plans": {
        "type": ["object", "null"],
        "additionalProperties": {
          "type": "object",
          "properties": {
            "total_spouses": {"type": "integer", "minimum": 0},
            "total_premium": {"type": "number"}
          }
        }
      },
      "calculations": {
        "type": ["object", "null"],
        "properties": {
          "hr_total_lives": {"type": "integer"},
          "hr_total_premium": {"type": "number"},
          "maternity_total_lives": {"type": "integer"},
          "maternity_total_premium": {"type": "number"},
          "total_premium": {"type": "number"},
          "waiver_percentage": {"type": ["number", "null"]},
          "maternity_coverage_status": {"type": ["string", "null"]}
        }
      }
    }
  }`

var allQuotationsSchema = strings.TrimSpace(`
{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "data": {
      "type": "object",
      "required": ["users"],
      "properties": {
        "users": {"type": "array", "items": {"$ref": "#/$defs/user"}}
      }
    }
  },
  "$defs": {
    "user": {
      "type": "object",
      "required": ["user_details", "total_quotations"],
      "properties": {
        "user_details": {
          "type": "object",
          "required": ["id", "first_name", "last_name", "work_email"],
          "properties": {
            "id": {"type": "integer"},
            "first_name": {"type": "string"},
            "last_name": {"type": "string"},
            "work_email": {"type": "string"},
            "mobile_number": {"type": ["string", "null"]},
            "company_name": {"type": ["string", "null"]},
            "created_at": {"type": ["string", "null"]}
          }
        },
        "total_quotations": {"type": "integer", "minimum": 0},
        "quotations": {"type": ["array", "null"], "items": {"$ref": "#/$defs/quotation"}}
      }
    },` + quotationDefs + `
  }
}`)

var userQuotationsSchema = strings.TrimSpace(`
{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "data": {
      "type": "object",
      "required": ["quotations"],
      "properties": {
        "quotations": {"type": ["array", "null"], "items": {"$ref": "#/$defs/quotation"}}
      }
    }
  },
  "$defs": {` + quotationDefs + `
  }
}`)
