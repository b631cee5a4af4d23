package book

import "errors"

// ValidationError reports input that failed the construction-time validation
// gate (empty name, malformed phone, unparseable birthday). A value type is
// never observable in an invalid state; the error is returned before any
// mutation happens.
//
// Key is a stable translation key the presentation layer can localize.
// Msg is the English fallback used for logs and Error().
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
