package dispatch

import "fmt"

// ConfigError marks malformed service data discovered at delivery time
// (bad endpoint URL, unknown content type). It fails the one recipient it
// belongs to and never aborts the dispatch.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Reason
}

// TransportError marks a network-level failure reaching an endpoint (DNS,
// connection refused, timeout). Per-recipient, never retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
