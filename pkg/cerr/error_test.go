package cerr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCodeHTTPCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{OK, http.StatusOK},
		{InvalidArgument, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{AlreadyExists, http.StatusConflict},
		{Aborted, http.StatusConflict},
		{FailedPrecondition, http.StatusPreconditionFailed},
		{Internal, http.StatusInternalServerError},
		{Unavailable, http.StatusServiceUnavailable},
		{Unauthenticated, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := tt.code.HTTPCode(); got != tt.want {
				t.Errorf("%v.HTTPCode() = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := NewError(NotFound, "task not found", nil)
	if !IsCode(err, NotFound) {
		t.Error("IsCode(err, NotFound) = false")
	}
	if IsCode(err, AlreadyExists) {
		t.Error("IsCode(err, AlreadyExists) = true")
	}
	wrapped := fmt.Errorf("handling request: %w", err)
	if !IsCode(wrapped, NotFound) {
		t.Error("IsCode does not unwrap")
	}
	if IsCode(errors.New("plain"), NotFound) {
		t.Error("IsCode matches a plain error")
	}
	if IsCode(nil, NotFound) {
		t.Error("IsCode matches nil")
	}
}

func TestJSONResponseChiMiddleware(t *testing.T) {
	mw := NewJSONResponseChiMiddleware()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponse(r.Context(), map[string]string{"ok": "yes"})
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":"yes"}` + "\n",
		},
		{
			name: "created",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONCreated(r.Context(), map[string]string{"id": "1"})
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"id":"1"}` + "\n",
		},
		{
			name: "typed error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetNewJSONError(r.Context(), FailedPrecondition, "cannot leave the done state", nil)
			},
			wantStatus: http.StatusPreconditionFailed,
			wantBody:   `{"code":"FailedPrecondition","message":"cannot leave the done state"}` + "\n",
		},
		{
			name: "untyped error maps to Unknown",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONError(r.Context(), errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"Unknown","message":"unknown error"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mw(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}
