package validation

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the errors into "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}

// Validator holds a compiled schema and may be shared between goroutines.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks doc, which may be a struct, a map or raw JSON bytes.
func (v *Validator) Validate(doc interface{}) (*ValidationResult, error) {
	var loader gojsonschema.JSONLoader
	switch d := doc.(type) {
	case []byte:
		loader = gojsonschema.NewBytesLoader(d)
	case string:
		loader = gojsonschema.NewStringLoader(d)
	default:
		loader = gojsonschema.NewGoLoader(d)
	}

	res, err := v.schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	return out, nil
}

var (
	passportOnce      sync.Once
	passportValidator *Validator
	passportErr       error
)

// ValidatePassport checks a generated passport against PassportSchema.
func ValidatePassport(doc interface{}) (*ValidationResult, error) {
	passportOnce.Do(func() {
		passportValidator, passportErr = NewValidator(PassportSchema)
	})
	if passportErr != nil {
		return nil, passportErr
	}
	return passportValidator.Validate(doc)
}

// PassportSchema is the contract every stored or indexed passport meets.
const PassportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fundabilityScore", "breakdown", "interpretation", "riskProfile",
               "liquidityIndex", "repaymentCapacity", "resilienceScore", "narrative", "timestamp"],
  "definitions": {
    "percent": {"type": "number", "minimum": 0, "maximum": 100},
    "level": {"type": "string", "enum": ["low", "medium", "high"]},
    "lines": {"type": "array", "items": {"type": "string"}}
  },
  "properties": {
    "fundabilityScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "breakdown": {
      "type": "object",
      "required": ["financialStrength", "complianceGovernance", "creditBehavior", "digitalOperational", "behavioral"],
      "properties": {
        "financialStrength": {"$ref": "#/definitions/percent"},
        "complianceGovernance": {"$ref": "#/definitions/percent"},
        "creditBehavior": {"$ref": "#/definitions/percent"},
        "digitalOperational": {"$ref": "#/definitions/percent"},
        "behavioral": {"$ref": "#/definitions/percent"}
      }
    },
    "interpretation": {
      "type": "string",
      "enum": ["Very Low Fundability", "Low Fundability", "Medium Fundability (Bankable with support)",
               "High Fundability", "Very High Fundability"]
    },
    "riskProfile": {
      "type": "object",
      "required": ["financial_risk", "compliance_risk", "credit_risk", "market_risk",
                   "operational_risk", "liquidity_concern", "overall_risk_level"],
      "properties": {
        "financial_risk": {"$ref": "#/definitions/level"},
        "compliance_risk": {"$ref": "#/definitions/level"},
        "credit_risk": {"$ref": "#/definitions/level"},
        "market_risk": {"$ref": "#/definitions/level"},
        "operational_risk": {"$ref": "#/definitions/level"},
        "liquidity_concern": {"$ref": "#/definitions/level"},
        "overall_risk_level": {"$ref": "#/definitions/level"}
      }
    },
    "liquidityIndex": {"type": "number", "minimum": 0, "maximum": 10},
    "repaymentCapacity": {
      "type": "object",
      "required": ["label", "score", "details"],
      "properties": {
        "label": {"type": "string", "enum": ["Strong", "Moderate", "Weak"]},
        "score": {"type": "number", "minimum": 0, "maximum": 10},
        "details": {"type": "string"}
      }
    },
    "resilienceScore": {"$ref": "#/definitions/percent"},
    "narrative": {
      "type": "object",
      "required": ["headline", "strengths", "weaknesses", "bank_concerns", "recommendations", "suggested_partners"],
      "properties": {
        "headline": {"type": "string", "minLength": 1},
        "strengths": {"$ref": "#/definitions/lines"},
        "weaknesses": {"$ref": "#/definitions/lines"},
        "bank_concerns": {"$ref": "#/definitions/lines"},
        "recommendations": {"type": "array", "items": {"type": "string"}, "minItems": 1},
        "suggested_partners": {"type": "array", "items": {"type": "string"}, "minItems": 1}
      }
    },
    "timestamp": {"type": "string", "format": "date-time"}
  }
}`
