package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryAmount reads a required positive money amount.
func ParseQueryAmount(r *http.Request, key string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter required").WithDetails(map[string]any{"field": key})
	}
	value := money.Parse(raw)
	if !money.IsFinite(value) || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive amount").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func ParseIndexParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "index must be a non-negative integer").WithDetails(map[string]any{"field": name})
	}
	return index, nil
}

// ParseOrderTypeParam accepts buy or sell in any case.
func ParseOrderTypeParam(r *http.Request, name string) (enums.OrderType, error) {
	orderType, err := enums.ParseOrderType(chi.URLParam(r, name))
	if err != nil || !orderType.SupportsForm() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order type must be buy or sell").WithDetails(map[string]any{"field": name})
	}
	return orderType, nil
}
