package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope optionally carries Data when the failed request still changed
// state the client should render, such as a refused form transition.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
	Data  any      `json:"data,omitempty"`
}
