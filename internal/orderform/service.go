package orderform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/internal/submissions"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/lock"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
)

const submitLockScope = "submit"

// ReferenceLoader is the slice of refdata.Service the form needs.
type ReferenceLoader interface {
	Load(ctx context.Context, orgID uuid.UUID) (*refdata.Snapshot, error)
	Invalidate(ctx context.Context, orgID uuid.UUID) error
}

// OrderWriter creates orders and their vendor charge follow-ups.
type OrderWriter interface {
	CreateOrder(ctx context.Context, orgID uuid.UUID, idempotencyKey string, payload backend.CreateOrderRequest) (backend.CreatedOrder, error)
	CreateAccountTransaction(ctx context.Context, orgID, accountID uuid.UUID, idempotencyKey string, payload backend.AccountTransactionRequest) (backend.Transaction, error)
}

type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// LockKeys builds namespaced lock keys.
type LockKeys interface {
	LockKey(scope, id string) string
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type EventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Metrics interface {
	ObserveTransition(orderType, from, to, result string)
	IncValidationFailure(orderType, kind string)
	IncSubmission(orderType, result string)
}

type ServiceParams struct {
	References    ReferenceLoader
	Drafts        DraftStore
	Orders        OrderWriter
	Submissions   submissions.Repository
	Locker        Locker
	LockKeys      LockKeys
	Tx            TxRunner
	Outbox        EventEmitter
	Metrics       Metrics
	SubmitLockTTL time.Duration
	Logger        *logger.Logger
}

type Service struct {
	refs        ReferenceLoader
	drafts      DraftStore
	orders      OrderWriter
	submissions submissions.Repository
	locker      Locker
	lockKeys    LockKeys
	tx          TxRunner
	outbox      EventEmitter
	metrics     Metrics
	lockTTL     time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.References == nil {
		return nil, fmt.Errorf("reference loader required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if params.Submissions == nil {
		return nil, fmt.Errorf("submissions repository required")
	}
	if params.Locker == nil || params.LockKeys == nil {
		return nil, fmt.Errorf("submit locker required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.SubmitLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		refs:        params.References,
		drafts:      params.Drafts,
		orders:      params.Orders,
		submissions: params.Submissions,
		locker:      params.Locker,
		lockKeys:    params.LockKeys,
		tx:          params.Tx,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		lockTTL:     ttl,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// SubmitResult is returned after a completed submission. View is the fresh
// form the user continues with.
type SubmitResult struct {
	SubmissionID      uuid.UUID  `json:"submission_id"`
	OrderID           uuid.UUID  `json:"order_id"`
	VendorChargeTxnID *uuid.UUID `json:"vendor_charge_txn_id,omitempty"`
	GrandTotal        float64    `json:"grand_total"`
	View              View       `json:"form"`
}

type session struct {
	form  *Form
	ref   DraftRef
	fresh bool
}

func (s *Service) open(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (*session, error) {
	if !orderType.SupportsForm() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "order forms support BUY and SELL, got %q", orderType)
	}
	snap, err := s.refs.Load(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	ref := DraftRef{OrganizationID: actor.OrganizationID, UserID: actor.UserID, OrderType: orderType}
	cart, fresh, err := s.loadCart(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &session{form: NewForm(cart, snap), ref: ref, fresh: fresh}, nil
}

// loadCart decodes the stored draft. Drafts that cannot be decoded or belong
// to another form are dropped and replaced by an empty cart.
func (s *Service) loadCart(ctx context.Context, ref DraftRef) (Cart, bool, error) {
	raw, err := s.drafts.Load(ctx, ref)
	if errors.Is(err, ErrDraftNotFound) {
		return NewCart(uuid.New(), ref.OrganizationID, ref.OrderType), true, nil
	}
	if err != nil {
		return Cart{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order form draft")
	}
	var cart Cart
	reason := ""
	switch {
	case json.Unmarshal(raw, &cart) != nil:
		reason = "malformed"
	case cart.Version != cartVersion:
		reason = "version"
	case cart.OrganizationID != ref.OrganizationID || cart.OrderType != ref.OrderType:
		reason = "mismatch"
	case cart.SessionID == uuid.Nil || !cart.Stage.IsValid():
		reason = "invalid"
	}
	if reason != "" {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_type": ref.OrderType.String(),
				"reason":     reason,
			})
			s.logg.Warn(logCtx, "orderform.draft_discarded")
		}
		if err := s.drafts.Delete(ctx, ref); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orderform.draft_delete_failed")
		}
		return NewCart(uuid.New(), ref.OrganizationID, ref.OrderType), true, nil
	}
	cart = cart.normalized()
	return cart, false, nil
}

func (s *Service) save(ctx context.Context, sess *session) error {
	raw, err := json.Marshal(sess.form.Cart())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order form draft")
	}
	if err := s.drafts.Save(ctx, sess.ref, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order form draft")
	}
	return nil
}

// View returns the current form without changing it.
func (s *Service) View(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (View, error) {
	if err := actor.Require(enums.ResourceOrders, enums.ActionRead); err != nil {
		return View{}, err
	}
	sess, err := s.open(ctx, actor, orderType)
	if err != nil {
		return View{}, err
	}
	if sess.fresh {
		if err := s.save(ctx, sess); err != nil {
			return View{}, err
		}
	}
	return sess.form.View(), nil
}

// Mutate applies one edit and persists the result. A rejected edit leaves
// the stored draft untouched.
func (s *Service) Mutate(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, edit func(*Form) error) (View, error) {
	if err := actor.Require(enums.ResourceOrders, enums.ActionUpdate); err != nil {
		return View{}, err
	}
	sess, err := s.open(ctx, actor, orderType)
	if err != nil {
		return View{}, err
	}
	if err := edit(sess.form); err != nil {
		return View{}, err
	}
	if err := s.save(ctx, sess); err != nil {
		return View{}, err
	}
	return sess.form.View(), nil
}

func (s *Service) SetLines(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, lines []LineInput) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetLines(lines) })
}

func (s *Service) AddLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, line LineInput) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.AddLine(line) })
}

func (s *Service) UpdateLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, index int, patch LinePatch) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.UpdateLine(index, patch) })
}

func (s *Service) RemoveLine(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, index int) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.RemoveLine(index) })
}

func (s *Service) SetDiscount(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, kind enums.AdjustmentType, value float64) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetDiscount(kind, value) })
}

func (s *Service) SetTax(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, kind enums.AdjustmentType, value float64) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetTax(kind, value) })
}

func (s *Service) SetCharges(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, charges []ChargeInput) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetCharges(charges) })
}

func (s *Service) SetPayments(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, payments []Payment) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetPayments(payments) })
}

func (s *Service) SetDetails(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, details DetailsInput) (View, error) {
	return s.Mutate(ctx, actor, orderType, func(f *Form) error { return f.SetDetails(details) })
}

// Next advances the form. A blocked transition is persisted with its form
// error so the next view shows it.
func (s *Service) Next(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (View, error) {
	return s.transition(ctx, actor, orderType, func(f *Form) (Transition, error) { return f.Next() })
}

func (s *Service) Back(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, target enums.FormStage) (View, error) {
	return s.transition(ctx, actor, orderType, func(f *Form) (Transition, error) { return f.Back(target) })
}

func (s *Service) Reset(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (View, error) {
	return s.transition(ctx, actor, orderType, func(f *Form) (Transition, error) { return f.ResetForm(), nil })
}

func (s *Service) transition(ctx context.Context, actor permissions.Actor, orderType enums.OrderType, step func(*Form) (Transition, error)) (View, error) {
	if err := actor.Require(enums.ResourceOrders, enums.ActionUpdate); err != nil {
		return View{}, err
	}
	sess, err := s.open(ctx, actor, orderType)
	if err != nil {
		return View{}, err
	}
	tr, stepErr := step(sess.form)
	s.observeTransition(ctx, orderType, tr)
	if stepErr != nil && tr.Kind == "" {
		return View{}, stepErr
	}
	if err := s.save(ctx, sess); err != nil {
		return View{}, err
	}
	return sess.form.View(), stepErr
}

func (s *Service) observeTransition(ctx context.Context, orderType enums.OrderType, tr Transition) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(orderType.String(), tr.From.String(), tr.To.String(), tr.Result)
		if tr.Kind != "" {
			s.metrics.IncValidationFailure(orderType.String(), tr.Kind)
		}
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_type": orderType.String(),
			"from":       tr.From.String(),
			"to":         tr.To.String(),
			"result":     tr.Result,
			"kind":       tr.Kind,
		})
		s.logg.Info(logCtx, "orderform.transition")
	}
}

// Submit creates the order from the summary stage. Concurrent submits of
// the same draft are rejected. A retry after a partial failure resumes at
// the first step that did not complete.
func (s *Service) Submit(ctx context.Context, actor permissions.Actor, orderType enums.OrderType) (*SubmitResult, error) {
	if err := actor.Require(enums.ResourceOrders, enums.ActionCreate); err != nil {
		return nil, err
	}
	sess, err := s.open(ctx, actor, orderType)
	if err != nil {
		return nil, err
	}
	if err := sess.form.SubmitReady(); err != nil {
		if s.metrics != nil {
			if details, ok := pkgerrors.As(err).Details().(map[string]any); ok {
				if kind, ok := details["kind"].(string); ok {
					s.metrics.IncValidationFailure(orderType.String(), kind)
				}
			}
		}
		if sess.form.Cart().FormError != "" {
			if saveErr := s.save(ctx, sess); saveErr != nil {
				return nil, saveErr
			}
		}
		return nil, err
	}

	var result *SubmitResult
	lockKey := s.lockKeys.LockKey(submitLockScope, sess.ref.OrganizationID.String()+":"+sess.ref.OrderType.String()+":"+sess.ref.UserID.String())
	err = s.locker.WithLock(ctx, lockKey, s.lockTTL, func(ctx context.Context) error {
		var runErr error
		result, runErr = s.submit(ctx, actor, sess)
		return runErr
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "submission already in progress")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) submit(ctx context.Context, actor permissions.Actor, sess *session) (*SubmitResult, error) {
	orgID := actor.OrganizationID
	cart := sess.form.Cart()
	calc := cart.Calculations()
	req := BuildOrderRequest(cart)
	payload, fingerprint, err := submissionFingerprint(sess.form, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order payload")
	}

	sub, err := s.submissions.Find(ctx, cart.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load submission")
	}
	if sub != nil && sub.PayloadHash != fingerprint {
		if sub.BackendOrderID != nil || sub.Status == enums.SubmissionStatusCompleted {
			return nil, s.refuseChangedSubmission(ctx, sess, sub)
		}
		// Nothing reached the backend under the old id, so the edited cart
		// starts a new submission. The draft is saved first so a crash
		// cannot hand the old id to the next attempt.
		previous := sub.ID
		sess.form.renewSession()
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		cart = sess.form.Cart()
		sub = nil
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"previous_submission_id": previous.String(),
				"submission_id":          cart.SessionID.String(),
			}), "orderform.session_renewed")
		}
	}
	if sub == nil {
		sub = &models.OrderSubmission{
			ID:             cart.SessionID,
			OrganizationID: orgID,
			UserID:         actor.UserID,
			OrderType:      cart.OrderType,
			Payload:        payload,
			PayloadHash:    fingerprint,
			GrandTotal:     decimal.NewFromFloat(money.Round2(calc.GrandTotal)),
			VendorCharges:  decimal.NewFromFloat(money.Round2(calc.VendorCharges)),
		}
		if err := s.submissions.Create(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record submission")
		}
	}

	if sub.Status != enums.SubmissionStatusCompleted {
		if err := s.advance(ctx, actor, sess.form, sub, req); err != nil {
			s.fail(ctx, sess, sub.ID, err)
			return nil, err
		}
	}
	return s.complete(ctx, sess, sub, calc)
}

// refuseChangedSubmission stops a resubmit whose cart no longer matches the
// order the backend already holds for this session.
func (s *Service) refuseChangedSubmission(ctx context.Context, sess *session, sub *models.OrderSubmission) error {
	details := map[string]any{
		"kind":          FailureSubmissionChanged,
		"submission_id": sub.ID.String(),
	}
	if sub.BackendOrderID != nil {
		details["order_id"] = sub.BackendOrderID.String()
	}
	err := pkgerrors.New(pkgerrors.CodeStateConflict,
		"An order was already created for this form with different contents. Restore the submitted cart to finish it, or reset the form.").
		WithDetails(details)
	sess.form.cart.FormError = err.Message()
	if saveErr := s.save(ctx, sess); saveErr != nil {
		return saveErr
	}
	if s.metrics != nil {
		s.metrics.IncValidationFailure(sess.ref.OrderType.String(), FailureSubmissionChanged)
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, details), "orderform.submission_changed")
	}
	return err
}

// submissionFingerprint encodes the order payload and hashes everything a
// submission sends to the backend: the order and the vendor-charge posting.
func submissionFingerprint(form *Form, req backend.CreateOrderRequest) (json.RawMessage, string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", err
	}
	fp := struct {
		Order         json.RawMessage `json:"order"`
		VendorCharges float64         `json:"vendor_charges"`
		VendorAccount *uuid.UUID      `json:"vendor_account,omitempty"`
	}{Order: payload, VendorCharges: money.Round2(form.Calculations().VendorCharges)}
	if fp.VendorCharges > 0 {
		if accountID, ok := form.VendorChargeAccount(); ok {
			fp.VendorAccount = &accountID
		}
	}
	raw, err := json.Marshal(fp)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	return payload, hex.EncodeToString(sum[:]), nil
}

// advance runs the backend calls still missing for sub and marks it
// completed together with the order.submitted event.
func (s *Service) advance(ctx context.Context, actor permissions.Actor, form *Form, sub *models.OrderSubmission, req backend.CreateOrderRequest) error {
	orgID := actor.OrganizationID
	cart := form.Cart()
	if sub.BackendOrderID == nil {
		created, err := s.orders.CreateOrder(ctx, orgID, sub.ID.String(), req)
		if err != nil {
			return err
		}
		if err := s.submissions.MarkOrderCreated(ctx, sub.ID, created.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record created order")
		}
		sub.BackendOrderID = &created.ID
		sub.Status = enums.SubmissionStatusOrderCreated
	}
	orderID := *sub.BackendOrderID

	vendorCharges := money.Round2(cart.Calculations().VendorCharges)
	if vendorCharges > 0 && sub.VendorChargeTxnID == nil {
		accountID, ok := form.VendorChargeAccount()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "vendor charge account is required")
		}
		txn, err := s.orders.CreateAccountTransaction(ctx, orgID, accountID, sub.ID.String()+":vendor-charge", VendorChargeRequest(cart, orderID))
		if err != nil {
			return err
		}
		sub.VendorChargeTxnID = &txn.ID
	}

	now := s.now().UTC()
	event := s.submittedEvent(actor, cart, sub, orderID, now)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.submissions.WithTx(tx).MarkCompleted(ctx, sub.ID, sub.VendorChargeTxnID, now); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete submission")
	}
	sub.Status = enums.SubmissionStatusCompleted
	sub.CompletedAt = &now
	return nil
}

func (s *Service) submittedEvent(actor permissions.Actor, cart Cart, sub *models.OrderSubmission, orderID uuid.UUID, at time.Time) outbox.DomainEvent {
	calc := cart.Calculations().Rounded()
	return outbox.DomainEvent{
		EventType:     enums.EventOrderSubmitted,
		AggregateType: enums.AggregateOrderSubmission,
		AggregateID:   sub.ID,
		Actor: &outbox.ActorRef{
			UserID:         actor.UserID,
			OrganizationID: actor.OrganizationID,
			Role:           actor.Role.String(),
		},
		OccurredAt: at,
		Data: payloads.OrderSubmittedEvent{
			SubmissionID:      sub.ID,
			OrganizationID:    actor.OrganizationID,
			OrderID:           orderID,
			OrderType:         cart.OrderType,
			EntityID:          cart.EntityID,
			LineCount:         len(BuildOrderRequest(cart).Products),
			GrandTotal:        calc.GrandTotal,
			TotalPaid:         calc.TotalPaid,
			VendorCharges:     calc.VendorCharges,
			VendorChargeTxnID: sub.VendorChargeTxnID,
			SubmittedAt:       at,
		},
	}
}

// fail records the attempt and keeps the cart in summary with the error
// shown, so the same submit can be retried.
func (s *Service) fail(ctx context.Context, sess *session, submissionID uuid.UUID, cause error) {
	orderType := sess.ref.OrderType.String()
	if err := s.submissions.MarkFailed(ctx, submissionID, cause); err != nil && s.logg != nil {
		s.logg.Error(ctx, "orderform.submission_mark_failed", err)
	}
	msg := "Order submission failed"
	if appErr := pkgerrors.As(cause); appErr != nil {
		msg = appErr.Message()
	}
	sess.form.cart.FormError = msg
	if err := s.save(ctx, sess); err != nil && s.logg != nil {
		s.logg.Error(ctx, "orderform.draft_save_failed", err)
	}
	if s.metrics != nil {
		s.metrics.IncSubmission(orderType, "failed")
	}
	if s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "submission_id", submissionID.String()), "orderform.submit_failed", cause)
	}
}

func (s *Service) complete(ctx context.Context, sess *session, sub *models.OrderSubmission, calc pricing.Calculations) (*SubmitResult, error) {
	if err := s.drafts.Delete(ctx, sess.ref); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orderform.draft_delete_failed")
	}
	if err := s.refs.Invalidate(ctx, sess.ref.OrganizationID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orderform.cache_invalidate_failed")
	}

	// The next cart is a new session; the old id now names a completed submission.
	sess.form.cart = NewCart(uuid.New(), sess.ref.OrganizationID, sess.ref.OrderType)
	sess.form.recompute()

	orderType := sess.ref.OrderType.String()
	if s.metrics != nil {
		s.metrics.IncSubmission(orderType, "completed")
	}
	result := &SubmitResult{
		SubmissionID:      sub.ID,
		VendorChargeTxnID: sub.VendorChargeTxnID,
		GrandTotal:        money.Round2(calc.GrandTotal),
		View:              sess.form.View(),
	}
	if sub.BackendOrderID != nil {
		result.OrderID = *sub.BackendOrderID
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"submission_id": sub.ID.String(),
			"order_id":      result.OrderID.String(),
			"order_type":    orderType,
			"grand_total":   result.GrandTotal,
		})
		s.logg.Info(logCtx, "orderform.submitted")
	}
	return result, nil
}
