package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUpstreamRejected, status: http.StatusUnprocessableEntity, publicMsg: "request rejected by ledger", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Error() != "CONFLICT: ctx: boom" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}

	formatted := Newf(CodeNotFound, "entity %s missing", "e-1")
	if formatted.Message() != "entity e-1 missing" {
		t.Fatalf("unexpected message %q", formatted.Message())
	}
}

func TestAsAndIsCodeFollowChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("expected IsCode to match forbidden")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should default to internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeSeesInnerCodes(t *testing.T) {
	inner := New(CodeUpstreamRejected, "ledger said no")
	err := Wrap(CodeDependency, fmt.Errorf("settle: %w", inner), "execute settlement")

	if CodeOf(err) != CodeDependency {
		t.Fatalf("CodeOf should report the outermost code, got %s", CodeOf(err))
	}
	if !IsCode(err, CodeUpstreamRejected) {
		t.Fatalf("expected IsCode to find the wrapped upstream code")
	}
	if IsCode(err, CodeValidation) {
		t.Fatalf("validation is nowhere in the chain")
	}
	if !IsRetryable(err) || IsRetryable(inner) {
		t.Fatalf("retryable follows the outermost code")
	}
	if !IsRetryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are retryable")
	}
}

func TestDumpCapturesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_order_submissions_session", TableName: "order_submissions"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "record submission")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "ux_order_submissions_session" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(dump.Chain))
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation detection")
	}
}

func TestDumpReadsLibPQErrorsAndUntypedChains(t *testing.T) {
	pqErr := &pq.Error{Code: "23502", Table: "settlement_entries", Column: "order_id", Message: "null value"}
	dump := Dump(fmt.Errorf("goose up: %w", pqErr))
	if dump.Code != "" {
		t.Fatalf("untyped chain should not report a code, got %s", dump.Code)
	}
	if !dump.Retryable {
		t.Fatalf("untyped errors are treated as internal and retryable")
	}
	if dump.PGCode != "23502" || dump.PGColumn != "order_id" || dump.PGTable != "settlement_entries" {
		t.Fatalf("unexpected pq fields %+v", dump)
	}
	if IsUniqueViolation(pqErr) {
		t.Fatalf("not-null violation is not a unique violation")
	}
	if got := Dump(nil); got.TopMessage != "" || got.Chain != nil {
		t.Fatalf("nil error dumps empty, got %+v", got)
	}
}
