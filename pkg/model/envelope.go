package model

import "encoding/json"

// Envelope is the JSON body returned by every benchmark target.
type Envelope struct {
	// Data carries the query result rows. It may be a single object, an
	// array of objects or null; the benchmark never inspects it.
	Data json.RawMessage `json:"data,omitempty"`

	// TimeMs is the server-reported processing duration in milliseconds.
	TimeMs *float64 `json:"timeMs"`

	// Binding identifies which backend configuration served the request.
	Binding string `json:"binding"`

	// Error is the application-level error message, if any. A target may
	// report a database failure here while still returning HTTP 200.
	Error string `json:"error,omitempty"`
}

// Verdict is the outcome of validating an Envelope against the wire
// contract.
type Verdict int

const (
	// VerdictInvalid means the body is structurally invalid: it reports no
	// error, yet lacks a numeric timeMs or a binding.
	VerdictInvalid Verdict = iota

	// VerdictSuccess means the body carries a server time and a binding and
	// no error.
	VerdictSuccess

	// VerdictErrorBody means the body itself reports an error. Missing
	// timeMs or binding fields are tolerated in this case.
	VerdictErrorBody
)

// Validate checks the envelope against the wire contract. timeMs and binding
// are required unless the body reports an error.
func (e *Envelope) Validate() Verdict {
	if e.Error != "" {
		return VerdictErrorBody
	}
	if e.TimeMs == nil || e.Binding == "" {
		return VerdictInvalid
	}
	return VerdictSuccess
}
