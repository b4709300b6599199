package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/orderform"
	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// OrderFormService is the order form surface the handlers drive.
type OrderFormService interface {
	View(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error)
	SetLines(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, lines []orderform.LineInput) (orderform.View, error)
	AddLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, line orderform.LineInput) (orderform.View, error)
	UpdateLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, index int, patch orderform.LinePatch) (orderform.View, error)
	RemoveLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, index int) (orderform.View, error)
	SetDiscount(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, kind enums.AdjustmentType, value float64) (orderform.View, error)
	SetTax(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, kind enums.AdjustmentType, value float64) (orderform.View, error)
	SetCharges(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, charges []orderform.ChargeInput) (orderform.View, error)
	SetPayments(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, payments []orderform.Payment) (orderform.View, error)
	SetDetails(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, details orderform.DetailsInput) (orderform.View, error)
	Next(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error)
	Back(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, target enums.FormStage) (orderform.View, error)
	Reset(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error)
	Submit(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (*orderform.SubmitResult, error)
}

type setLinesRequest struct {
	Lines []orderform.LineInput `json:"lines" validate:"dive"`
}

type adjustmentRequest struct {
	Kind  enums.AdjustmentType `json:"kind" validate:"required,oneof=fixed percentage"`
	Value float64              `json:"value" validate:"gte=0"`
}

type setChargesRequest struct {
	Charges []orderform.ChargeInput `json:"charges" validate:"dive"`
}

type setPaymentsRequest struct {
	Payments []orderform.Payment `json:"payments"`
}

type backRequest struct {
	Stage enums.FormStage `json:"stage,omitempty"`
}

type formStep func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error)

// formHandler resolves the actor and order type, runs step and writes the
// form view. Refused transitions still carry the updated view.
func formHandler(logg *logger.Logger, step formStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
			return
		}
		orderType, err := validators.ParseOrderTypeParam(r, "orderType")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := step(r, actor, orderType)
		if err != nil {
			if view.Cart.SessionID != uuid.Nil {
				responses.WriteErrorWithData(r.Context(), logg, w, err, view)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func OrderFormView(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		return svc.View(r.Context(), actor, orderType)
	})
}

func OrderFormSetLines(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body setLinesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		for i := range body.Lines {
			body.Lines[i].Description = validators.SanitizeString(body.Lines[i].Description, 500)
		}
		return svc.SetLines(r.Context(), actor, orderType, body.Lines)
	})
}

func OrderFormAddLine(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body orderform.LineInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		body.Description = validators.SanitizeString(body.Description, 500)
		return svc.AddLine(r.Context(), actor, orderType, body)
	})
}

func OrderFormUpdateLine(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		index, err := validators.ParseIndexParam(r, "index")
		if err != nil {
			return orderform.View{}, err
		}
		var body orderform.LinePatch
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		if body.Description != nil {
			clean := validators.SanitizeString(*body.Description, 500)
			body.Description = &clean
		}
		return svc.UpdateLine(r.Context(), actor, orderType, index, body)
	})
}

func OrderFormRemoveLine(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		index, err := validators.ParseIndexParam(r, "index")
		if err != nil {
			return orderform.View{}, err
		}
		return svc.RemoveLine(r.Context(), actor, orderType, index)
	})
}

func OrderFormSetDiscount(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body adjustmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		return svc.SetDiscount(r.Context(), actor, orderType, body.Kind, body.Value)
	})
}

func OrderFormSetTax(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body adjustmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		return svc.SetTax(r.Context(), actor, orderType, body.Kind, body.Value)
	})
}

func OrderFormSetCharges(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body setChargesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		return svc.SetCharges(r.Context(), actor, orderType, body.Charges)
	})
}

func OrderFormSetPayments(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body setPaymentsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		return svc.SetPayments(r.Context(), actor, orderType, body.Payments)
	})
}

func OrderFormSetDetails(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body orderform.DetailsInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return orderform.View{}, err
		}
		if body.Description != nil {
			clean := validators.SanitizeString(*body.Description, 1000)
			body.Description = &clean
		}
		return svc.SetDetails(r.Context(), actor, orderType, body)
	})
}

func OrderFormNext(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		return svc.Next(r.Context(), actor, orderType)
	})
}

// OrderFormBack accepts an optional {"stage": ...}; without one it steps back once.
func OrderFormBack(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		var body backRequest
		if hasBody(r) {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return orderform.View{}, err
			}
		}
		return svc.Back(r.Context(), actor, orderType, body.Stage)
	})
}

func OrderFormReset(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return formHandler(logg, func(r *http.Request, actor permissions.Actor, orderType enums.OrderType) (orderform.View, error) {
		return svc.Reset(r.Context(), actor, orderType)
	})
}

func OrderFormSubmit(svc OrderFormService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
			return
		}
		orderType, err := validators.ParseOrderTypeParam(r, "orderType")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Submit(r.Context(), actor, orderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
