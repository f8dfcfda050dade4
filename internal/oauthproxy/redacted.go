package oauthproxy

// RedactedToken wraps a credential so it can be passed to loggers and
// formatted values without leaking.
//
//	logging.Debug("OAuthProxy", "Verifying %s", oauthproxy.NewRedactedToken(token))
type RedactedToken struct {
	value string
}

func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the wrapped credential. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

func (t RedactedToken) String() string {
	if t.value == "" {
		return "[EMPTY]"
	}
	return "[REDACTED]"
}

func (t RedactedToken) GoString() string {
	return "oauthproxy.RedactedToken{" + t.String() + "}"
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}
