// Package coverart looks up album covers on MusicBrainz and the Cover Art
// Archive for tracks whose video carries no usable thumbnail.
package coverart

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates no release or cover matched the lookup.
	ErrNotFound = errors.New("cover art not found")

	// ErrTemporaryFailure indicates an upstream error worth retrying later.
	ErrTemporaryFailure = errors.New("temporary failure")

	// ErrRateLimited indicates the upstream rejected the request rate.
	ErrRateLimited = errors.New("rate limited")
)

// IsTemporaryError reports whether err may succeed on a later attempt.
func IsTemporaryError(err error) bool {
	return errors.Is(err, ErrTemporaryFailure) || errors.Is(err, ErrRateLimited)
}

// rateLimiter spaces requests at least interval apart.
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &rateLimiter{interval: time.Second / time.Duration(requestsPerSecond)}
}

// Wait blocks until a request can be made.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wait := time.Until(r.lastRequest.Add(r.interval)); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
