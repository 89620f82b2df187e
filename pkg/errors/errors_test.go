package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidPath, "not a directory: %s", "/tmp/foo")
	if err.Code != ErrCodeInvalidPath {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeInvalidPath)
	}
	want := "INVALID_PATH: not a directory: /tmp/foo"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := Wrap(ErrCodeParseFailed, cause, "failed to parse %s", "go.mod")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !Is(err, ErrCodeParseFailed) {
		t.Error("Is should match the wrapping code")
	}
	if Is(err, ErrCodeNetwork) {
		t.Error("Is should not match a different code")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeSaveFailed, "disk full")); got != ErrCodeSaveFailed {
		t.Errorf("GetCode = %s, want %s", got, ErrCodeSaveFailed)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %s, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeFileNotFound, "no such manifest")
	if got := UserMessage(err); got != "no such manifest" {
		t.Errorf("UserMessage = %q", got)
	}
	plain := stderrors.New("boom")
	if got := UserMessage(plain); got != "boom" {
		t.Errorf("UserMessage on plain error = %q", got)
	}
}

func TestIsRateLimited(t *testing.T) {
	rl := &RateLimitedError{RetryAfter: 3}
	if !IsRateLimited(rl) {
		t.Error("IsRateLimited should be true for RateLimitedError")
	}
	if !IsRateLimited(fmt.Errorf("request failed: %w", rl)) {
		t.Error("IsRateLimited should unwrap")
	}
	if IsRateLimited(stderrors.New("nope")) {
		t.Error("IsRateLimited should be false for unrelated errors")
	}
	if rl.Error() != "rate limited: retry after 3 seconds" {
		t.Errorf("Error() = %q", rl.Error())
	}
	if (&RateLimitedError{}).Error() != "rate limited" {
		t.Error("zero RetryAfter should omit the suffix")
	}
}
