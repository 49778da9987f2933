package sessions

// TokenValidator validates access tokens and extracts claims without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds. Useful
// while rotating signing keys: tokens minted under the previous key stay
// valid until they expire. An expired token stops the chain immediately.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator builds a validator chain. Nil entries are skipped.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	out := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			out = append(out, v)
		}
	}
	return &MultiTokenValidator{validators: out}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	if m == nil || len(m.validators) == 0 {
		return nil, ErrUnableToDecodeSession
	}

	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsTokenExpiredError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
