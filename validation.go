package sessions

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field to message map suitable for JSON responses. Nested structures
// keep only the innermost message.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	verrs, ok := err.(validation.Errors)
	if !ok {
		out["error"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if nested, ok := ferr.(validation.Errors); ok {
			for nfield, nerr := range nested {
				out[field+"."+nfield] = nerr.Error()
			}
			continue
		}
		out[field] = ferr.Error()
	}
	return out
}
