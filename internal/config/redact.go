package config

const redacted = "[REDACTED]"

// Redacted returns a copy of cfg with secrets masked, for display.
func (c Config) Redacted() Config {
	out := c
	out.Auth.ClientSecret = mask(c.Auth.ClientSecret)
	out.Auth.JWTSigningKey = mask(c.Auth.JWTSigningKey)
	out.ClientStore.Valkey.Password = mask(c.ClientStore.Valkey.Password)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
