package domain

import (
	"log/slog"
	"strconv"
)

const redacted = "[redacted]"

// Credential is an opaque bearer token used to authenticate outbound calls.
// It prints and logs as "[redacted]"; use Reveal to obtain the raw value.
type Credential string

// IsZero reports whether no credential was configured.
func (c Credential) IsZero() bool {
	return c == ""
}

// Reveal returns the raw token. Only the outbound client should call it.
func (c Credential) Reveal() string {
	return string(c)
}

// String implements fmt.Stringer.
func (c Credential) String() string {
	if c.IsZero() {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v stays redacted too.
func (c Credential) GoString() string {
	return "domain.Credential(" + strconv.Quote(c.String()) + ")"
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// Or returns c, or fallback when c is empty.
func (c Credential) Or(fallback Credential) Credential {
	if c.IsZero() {
		return fallback
	}
	return c
}
