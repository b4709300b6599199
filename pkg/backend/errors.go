package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

type statusError struct {
	operation string
	status    int
	message   string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("%s: backend responded %d", e.operation, e.status)
	}
	return fmt.Sprintf("%s: backend responded %d: %s", e.operation, e.status, e.message)
}

// backendMessage pulls a human readable message from the common error body shapes.
func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var shaped struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &shaped); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(shaped.Message); msg != "" {
		return msg
	}
	if len(shaped.Error) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(shaped.Error, &plain); err == nil {
		return strings.TrimSpace(plain)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(shaped.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

// mapStatus turns a non-2xx response into a typed error.
func mapStatus(operation string, status int, body []byte) error {
	cause := &statusError{operation: operation, status: status, message: backendMessage(body)}
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "resource not found on ledger backend")
	case status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "ledger backend reported a conflict")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "ledger backend refused service credentials")
	case status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, "ledger backend is throttling requests")
	case status >= 400 && status < 500:
		msg := cause.message
		if msg == "" {
			msg = "ledger backend rejected the request"
		}
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamRejected, cause, msg).WithDetails(map[string]any{
			"operation": operation,
			"status":    status,
		})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "ledger backend unavailable")
	}
}
