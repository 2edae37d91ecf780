package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound means the upstream resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat means the upstream answered with something that is not the expected document.
	ErrInvalidFormat = errors.New("invalid response format")
	// ErrTimeout means the upstream did not answer within its deadline.
	ErrTimeout = errors.New("upstream timeout")
	// ErrExtraction wraps any other failure to produce a product.
	ErrExtraction = errors.New("extraction failed")
)

// HTTPError reports a non-success status from an upstream.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// ClassifyTransportError maps deadline and network timeouts onto ErrTimeout.
// Cancellation and all other errors are returned unchanged.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
