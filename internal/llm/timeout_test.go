package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingProvider waits for its context to end.
type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestWithTimeout_ReportsTimeout(t *testing.T) {
	p := WithTimeout(blockingProvider{}, 10*time.Millisecond)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if !IsTimeout(err) {
		t.Fatalf("expected ErrTimeout, got %T (%v)", err, err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout did not bound the call")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("ErrTimeout should unwrap to the deadline error")
	}
}

func TestWithTimeout_ParentCancelIsNotTimeout(t *testing.T) {
	p := WithTimeout(blockingProvider{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, Request{})
	if IsTimeout(err) {
		t.Fatal("cancelled parent must not be reported as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithTimeout_Disabled(t *testing.T) {
	mock := NewMockProvider()
	if WithTimeout(mock, 0) != Provider(mock) {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}
