// Package types holds the wire shapes shared by every HTTP response. Handlers
// never marshal ad hoc maps; they wrap payloads in these envelopes so clients
// see one consistent contract.
package types

// SuccessEnvelope wraps every 2xx payload under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing projection of a coded error. Code matches the
// machine codes emitted by pkg/errors; Details carries remediation context
// such as the current balance or status.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload under an "error" key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
