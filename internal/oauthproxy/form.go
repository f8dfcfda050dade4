package oauthproxy

import (
	"net/url"
	"strings"
)

// form is an application/x-www-form-urlencoded body that keeps parameters in
// insertion order. url.Values sorts by key, and some upstreams log or sign
// the body as sent.
type form struct {
	keys   []string
	values []string
}

func (f *form) add(key, value string) *form {
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return f
}

// addIf adds the pair only when value is not empty.
func (f *form) addIf(key, value string) *form {
	if value != "" {
		f.add(key, value)
	}
	return f
}

func (f *form) encode() string {
	var b strings.Builder
	for i, k := range f.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.values[i]))
	}
	return b.String()
}
