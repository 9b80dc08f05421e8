package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeOutOfStock, http.StatusConflict, false},
		{CodeEmptyCart, http.StatusUnprocessableEntity, false},
		{CodeCodeMismatch, http.StatusUnprocessableEntity, false},
		{CodeConflict, http.StatusConflict, true},
		{CodeRateLimit, http.StatusTooManyRequests, false},
		{CodeInternal, http.StatusInternalServerError, true},
	}

	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable=%v, got %v", tc.code, tc.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_REAL_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(CodeConflict, cause, "could not reserve stock")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to match its cause")
	}
	if err.Code() != CodeConflict {
		t.Fatalf("expected CONFLICT, got %s", err.Code())
	}
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(CodeOutOfStock, "only 1 left").WithDetails(map[string]any{"available": 1})
	wrapped := fmt.Errorf("checkout failed: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error to be recoverable")
	}
	if typed.Code() != CodeOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %s", typed.Code())
	}
	if typed.Details() == nil {
		t.Fatal("expected details to survive wrapping")
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	if As(errors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeDependency, cause, "write failed")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(d.Chain))
	}
}
