package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	HandleHealth(pingFunc(func(context.Context) error { return nil }))(rec, req)

	res := rec.Result()
	if res.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}

	body := rec.Body.String()
	if body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestHandleHealth_NoDatabase(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleHealth(nil)(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleHealth_DatabaseDown(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleHealth(pingFunc(func(context.Context) error { return errors.New("connection refused") }))(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 503 {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
