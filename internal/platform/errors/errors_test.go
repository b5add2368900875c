package errors

import (
	"context"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeUnsupported, http.StatusBadRequest},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeClosed, http.StatusServiceUnavailable},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	src := stderrs.New("connection reset")
	wrapped := Wrapf(src, ErrorCodeUnavailable, "search %q", "cats")
	if want := `search "cats": connection reset`; wrapped.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", wrapped.Error(), want)
	}
	if !stderrs.Is(wrapped, src) {
		t.Fatalf("Wrapf lost the cause")
	}

	tagged := WithOp(wrapped, "youtube.search")
	got, ok := As(tagged)
	if !ok || got.Op() != "youtube.search" || got.Code() != ErrorCodeUnavailable {
		t.Fatalf("WithOp mismatch: %+v", got)
	}
	if orig, _ := As(wrapped); orig.Op() != "" {
		t.Fatalf("WithOp mutated the original")
	}
	if WithOp(src, "x") != src {
		t.Fatalf("WithOp should return foreign errors unchanged")
	}

	outer := fmt.Errorf("poll: %w", NotFoundf("channel %s", "UC1"))
	if !IsCode(outer, ErrorCodeNotFound) {
		t.Fatalf("IsCode through fmt wrap failed, got %v", CodeOf(outer))
	}
}

func TestWireForm(t *testing.T) {
	status, w := HTTP(WithOp(Unsupportedf("unsupported message type"), "tag"))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"code":"unsupported","message":"unsupported message type","op":"tag"}`
	if string(b) != want {
		t.Fatalf("wire = %s, want %s", b, want)
	}

	if w := WireFrom(stderrs.New("plain")); w.Code != ErrorCodeUnknown || w.Message != "plain" {
		t.Fatalf("WireFrom foreign = %+v", w)
	}
	if status, w := HTTP(nil); status != http.StatusOK || w != (Wire{}) {
		t.Fatalf("HTTP(nil) = %d %+v", status, w)
	}
	if ErrorCode(42).String() != "code_42" {
		t.Fatalf("unknown code name = %q", ErrorCode(42).String())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", Unavailablef("503"), true},
		{"quota", New(ErrorCodeTooManyRequests, "quota"), true},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"canceled", Wrap(context.Canceled, ErrorCodeUnavailable, "get"), false},
		{"not found", ErrNotFound, false},
		{"bad input", InvalidArgf("empty id"), false},
		{"foreign", stderrs.New("boom"), false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
