package queue

import (
	"errors"
	"testing"
)

func TestCalculateBackoff_GrowsExponentially(t *testing.T) {
	policy := DefaultRetryPolicy()

	first := policy.CalculateBackoff(0)
	if first != policy.InitialBackoff {
		t.Fatalf("got first backoff %v, want %v", first, policy.InitialBackoff)
	}

	second := policy.CalculateBackoff(1)
	if second != policy.InitialBackoff*2 {
		t.Fatalf("got second backoff %v, want %v", second, policy.InitialBackoff*2)
	}
}

func TestCalculateBackoff_CapsAtMax(t *testing.T) {
	policy := DefaultRetryPolicy()

	backoff := policy.CalculateBackoff(20)
	if backoff != policy.MaxBackoff {
		t.Fatalf("got backoff %v, want cap %v", backoff, policy.MaxBackoff)
	}
}

func TestShouldRetry_StopsAtMaxRetries(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.ShouldRetry(errors.New("boom"), policy.MaxRetries) {
		t.Fatal("expected ShouldRetry to be false once max retries reached")
	}
}

func TestShouldRetry_RespectsPermanentHandlerError(t *testing.T) {
	policy := DefaultRetryPolicy()
	err := NewPermanentError("bad_input", "cannot parse job", nil)

	if policy.ShouldRetry(err, 0) {
		t.Fatal("expected permanent HandlerError not to be retried")
	}
}

func TestShouldRetry_RetriesTransientHandlerError(t *testing.T) {
	policy := DefaultRetryPolicy()
	err := NewTransientError("timeout", "upstream timed out", nil)

	if !policy.ShouldRetry(err, 0) {
		t.Fatal("expected transient HandlerError to be retried")
	}
}

func TestShouldRetry_DefaultsToRetryableForPlainErrors(t *testing.T) {
	policy := DefaultRetryPolicy()

	if !policy.ShouldRetry(errors.New("unexpected"), 0) {
		t.Fatal("expected plain errors to default to retryable")
	}
}
