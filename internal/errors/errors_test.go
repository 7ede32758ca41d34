package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "country not found",
	}

	expected := "NOT_FOUND: country not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("name is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q, want %q", err.Message, "name is required")
	}
}

func TestNewInvalidSort(t *testing.T) {
	err := NewInvalidSort("population", "gdp_desc")

	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["sort"] != "population" {
		t.Errorf("Details[sort] = %v, want population", err.Details["sort"])
	}
	allowed, ok := err.Details["allowed"].([]string)
	if !ok || len(allowed) != 1 || allowed[0] != "gdp_desc" {
		t.Errorf("Details[allowed] = %v, want [gdp_desc]", err.Details["allowed"])
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("Atlantis")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["name"] != "Atlantis" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "Atlantis")
	}
}

func TestNewSummaryNotGenerated(t *testing.T) {
	err := NewSummaryNotGenerated()

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
}

func TestNewRateLimited(t *testing.T) {
	err := NewRateLimited(6)

	if err.Code != ErrRateLimited {
		t.Errorf("Code = %q, want %q", err.Code, ErrRateLimited)
	}
	if err.Status != 429 {
		t.Errorf("Status = %d, want 429", err.Status)
	}
}

func TestNewSourceUnavailable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewSourceUnavailable("countries API", cause)

	if err.Code != ErrSourceUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrSourceUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if err.Message != "could not fetch data from countries API" {
		t.Errorf("Message = %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(sql.ErrConnDone)

	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if !stderrors.Is(err, sql.ErrConnDone) {
		t.Error("errors.Is(err, sql.ErrConnDone) = false, want true")
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestAs(t *testing.T) {
	nf := NewNotFound("x")
	wrapped := fmt.Errorf("lookup: %w", nf)
	if got := As(wrapped); got != nf {
		t.Errorf("As(wrapped) = %v, want original AppError", got)
	}

	plain := stderrors.New("boom")
	got := As(plain)
	if got.Code != ErrInternal {
		t.Errorf("As(plain).Code = %q, want %q", got.Code, ErrInternal)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("ctx: %w", NewSourceUnavailable("rates", nil)), ErrSourceUnavailable, true},
		{"plain error", stderrors.New("x"), ErrInternal, false},
		{"nil", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
