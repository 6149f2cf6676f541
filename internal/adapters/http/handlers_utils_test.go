package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stackyard/taskhub/internal/domain"
)

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()

	if _, err := bearerTokenFromHeader(""); err == nil {
		t.Fatal("empty header must be rejected")
	}
	if _, err := bearerTokenFromHeader("Basic abc"); err == nil {
		t.Fatal("non-bearer scheme must be rejected")
	}
	if _, err := bearerTokenFromHeader("Bearer   "); err == nil {
		t.Fatal("blank token must be rejected")
	}
	token, err := bearerTokenFromHeader("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("valid header: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Fatalf("token mismatch: %q", token)
	}
}

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrInvalidProgress, http.StatusBadRequest, "INVALID_PROGRESS"},
		{domain.ErrInvalidRequest, http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrStorageConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrStorageUnavailable, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("%v: got (%d, %s), want (%d, %s)", tc.err, status, code, tc.wantStatus, tc.wantCode)
		}
	}
}

func TestMapDomainErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("context"), domain.ErrInvalidProgress)
	status, code, _ := mapDomainError(wrapped)
	if status != http.StatusBadRequest || code != "INVALID_PROGRESS" {
		t.Fatalf("wrapped sentinel not recognized: (%d, %s)", status, code)
	}
}

func TestParseTimeParam(t *testing.T) {
	t.Parallel()

	if got, err := parseTimeParam(""); err != nil || got != nil {
		t.Fatalf("empty input must yield nil, got %v %v", got, err)
	}
	got, err := parseTimeParam("2025-06-01T12:00:00Z")
	if err != nil || got == nil {
		t.Fatalf("RFC3339 must parse: %v %v", got, err)
	}
	got, err = parseTimeParam("2025-06-01")
	if err != nil || got == nil {
		t.Fatalf("bare date must parse: %v %v", got, err)
	}
	if _, err := parseTimeParam("June 1st"); err == nil {
		t.Fatal("free-form dates must be rejected")
	}
}

func TestReadIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:4321"
	if got := readIP(r); got != "10.0.0.1" {
		t.Fatalf("remote addr: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := readIP(r); got != "203.0.113.9" {
		t.Fatalf("forwarded-for: got %q", got)
	}
}

func TestDecodeBodyRejectsUnknownFieldsAndTrailingJSON(t *testing.T) {
	t.Parallel()

	var dst struct {
		Title string `json:"title"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","extra":1}`))
	if err := decodeBody(r, &dst); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}{"title":"y"}`))
	if err := decodeBody(r, &dst); err == nil {
		t.Fatal("trailing JSON must be rejected")
	}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	if err := decodeBody(r, &dst); err != nil || dst.Title != "x" {
		t.Fatalf("valid body: %v %+v", err, dst)
	}
}
