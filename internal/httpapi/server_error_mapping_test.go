package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eodd/internal/lifecycle"
	"eodd/internal/service"
	"eodd/internal/taskqueue"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{lifecycle.InvalidTransitionError{From: lifecycle.Stopped, Request: lifecycle.Promote}, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", taskqueue.ErrQueueFull), http.StatusTooManyRequests},
		{taskqueue.ErrTaskNotFound, http.StatusNotFound},
		{service.ErrEmptyUsername, http.StatusBadRequest},
		{service.ErrClosed, http.StatusServiceUnavailable},
		{taskqueue.ErrQueueClosed, http.StatusServiceUnavailable},
		{service.ErrNilObserver, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWriteError_Payload(t *testing.T) {
	w := httptest.NewRecorder()
	if status := writeError(w, taskqueue.ErrTaskNotFound); status != http.StatusNotFound {
		t.Fatalf("status=%d", status)
	}
	if w.Code != http.StatusNotFound || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("code=%d ct=%s", w.Code, w.Header().Get("Content-Type"))
	}
}
