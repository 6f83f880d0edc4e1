// Package validation checks request bodies and configuration.
//
// Struct tags cover request bodies:
//
//	type body struct {
//	    Prompt string `json:"prompt" validate:"notblank"`
//	}
//	err := validation.Validate(body)
//
// Validator collects field errors for checks tags cannot express:
//
//	v := validation.New()
//	v.Required("llm.preferred", cfg.Preferred)
//	err := v.Err()
package validation
