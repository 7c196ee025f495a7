package gateway

import "fmt"

// UnknownProviderError means a campaign names a gateway outside the supported
// enum. Treated as a configuration problem, never retried.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unsupported payment gateway %q", e.Name)
}

// ConfigurationError means a required provider credential (or campaign field)
// is missing. Fails fast and is surfaced verbatim; retrying cannot help.
type ConfigurationError struct {
	Provider Provider
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing credential %s", e.Provider, e.Missing)
}

// GatewayError is a non-2xx or malformed response from a provider API. Message
// carries the provider's own error text where available, otherwise a
// truncated excerpt of the raw body for diagnostics.
type GatewayError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
