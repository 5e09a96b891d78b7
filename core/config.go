package core

import "strings"

// Credentials is an open string-keyed map of secrets and connection settings
// needed to construct a ModelHandle (e.g. "apiKey", "baseUrl", "location").
// No schema is enforced beyond per-provider required-field lists; adapters
// ignore fields they do not need.
type Credentials map[string]string

// Get returns the value for a credential field, or "" when absent.
func (c Credentials) Get(field string) string { return c[field] }

// Has reports whether a credential field is present and non-empty.
func (c Credentials) Has(field string) bool { return c[field] != "" }

// Clone returns a shallow copy so callers can mutate without aliasing.
func (c Credentials) Clone() Credentials {
	if c == nil {
		return nil
	}
	cp := make(Credentials, len(c))
	for k, v := range c {
		cp[k] = v
	}
	return cp
}

// ModelConfig is the unit of configuration persisted across panel sessions
// and the unit that triggers re-initialization when changed. An empty ModelID
// means "no model chosen yet"; the session may substitute the provider's
// default model if one exists.
type ModelConfig struct {
	ProviderID  string      `json:"provider_id"`
	ModelID     string      `json:"model_id,omitempty"`
	Credentials Credentials `json:"-"`
}

// CanonicalProviderID lowercases a provider id. Provider ids are
// case-insensitive on input and canonical lowercase everywhere else.
func CanonicalProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
