package models

// InputError is a field-scoped message returned by the upstream API.
type InputError struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// ErrorPayload is the structured error body returned on non-2xx responses.
type ErrorPayload struct {
	Toast []string     `json:"toast"`
	Input []InputError `json:"input"`
}
