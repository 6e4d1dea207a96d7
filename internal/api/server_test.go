package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"budgarden/internal/game"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc123", want: "abc123"},
		{header: "bearer abc123", want: "abc123"},
		{header: "Bearer   abc123  ", want: "abc123"},
		{header: "", want: ""},
		{header: "abc123", want: ""},
		{header: "Basic abc123", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("header=%q got=%q want=%q", tc.header, got, tc.want)
		}
	}
}

func TestIdempotencyKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/shop/purchase", nil)
	r.Header.Set("Idempotency-Key", "  client-key  ")
	if got := idempotencyKey(r); got != "client-key" {
		t.Fatalf("got %q", got)
	}

	// Without the header every request still gets a unique key.
	r = httptest.NewRequest(http.MethodPost, "/v1/shop/purchase", nil)
	first := idempotencyKey(r)
	second := idempotencyKey(r)
	if first == "" || first == second {
		t.Fatalf("expected distinct generated keys, got %q and %q", first, second)
	}
}

func TestDefaultInvite(t *testing.T) {
	if got := defaultInvite(""); got != game.SystemInviteCode {
		t.Fatalf("empty invite got %q", got)
	}
	if got := defaultInvite("  abc12 "); got != "ABC12" {
		t.Fatalf("got %q", got)
	}
}

func TestUsernameFromEmail(t *testing.T) {
	if got := usernameFromEmail("Grower@Example.com"); got != "grower" {
		t.Fatalf("got %q", got)
	}
	if got := usernameFromEmail("not-an-email"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: game.ErrPlayerNotFound, want: http.StatusNotFound},
		{err: game.ErrPlacedItemNotFound, want: http.StatusNotFound},
		{err: game.ErrUnknownItem, want: http.StatusNotFound},
		{err: game.ErrTileOccupied, want: http.StatusConflict},
		{err: game.ErrPurchaseLimitReached, want: http.StatusConflict},
		{err: game.ErrDuplicateIdempotency, want: http.StatusConflict},
		{err: game.ErrTxConflict, want: http.StatusConflict},
		{err: game.ErrInsufficientBalance, want: http.StatusBadRequest},
		{err: game.ErrItemNotOwned, want: http.StatusBadRequest},
		{err: game.ErrInvalidTile, want: http.StatusBadRequest},
		{err: game.ErrInvalidRotation, want: http.StatusBadRequest},
		{err: game.ErrUnauthorized, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("err=%v got=%d want=%d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestPlacedItemID(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/garden/items/abc/move", nil)
	if _, err := placedItemID(r); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}
