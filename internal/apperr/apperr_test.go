package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "validation", err: Validation("bad"), want: http.StatusBadRequest},
		{name: "invalid argument", err: InvalidArgument("bad"), want: http.StatusBadRequest},
		{name: "unauthorized", err: Unauthorized("no"), want: http.StatusUnauthorized},
		{name: "forbidden", err: Forbidden("no"), want: http.StatusForbidden},
		{name: "not found", err: NotFound("gone"), want: http.StatusNotFound},
		{name: "conflict", err: Conflict("dup"), want: http.StatusConflict},
		{name: "invalid state", err: InvalidState("late"), want: http.StatusConflict},
		{name: "wrapped conflict", err: fmt.Errorf("accept: %w", Conflict("dup")), want: http.StatusConflict},
		{name: "foreign", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Conflict("entry number %d already exists", 4))
	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected conflict to match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("conflict must not match ErrNotFound")
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := Internal("could not load marathon", errors.New("dial tcp: refused"))
	if got := PublicMessage(err); got != "could not load marathon" {
		t.Fatalf("PublicMessage() = %q", got)
	}
	if got := PublicMessage(errors.New("raw")); got != "internal server error" {
		t.Fatalf("PublicMessage(foreign) = %q", got)
	}
	if !errors.Is(err, ErrInternal) {
		t.Fatal("expected internal kind")
	}
}
