// Copyright 2026 The dflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy governs exponential backoff plus jitter for stream writes
// that hit a rate-limited backend, honoring a server-signalled Retry-After
// when present (spec.md §4.5).
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int

	// limiter caps how often this policy will let a caller retry at all,
	// independent of the backoff delay — a belt-and-suspenders guard
	// against a hot retry loop saturating a backend that is signalling
	// rate limits precisely because it's already overloaded.
	limiter *rate.Limiter
}

// NewRetryPolicy returns a policy with a limiter allowing at most one retry
// attempt per baseDelay on average, bursting up to maxRetries.
func NewRetryPolicy(baseDelay, maxDelay time.Duration, maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		MaxRetries: maxRetries,
		limiter:    rate.NewLimiter(rate.Every(baseDelay), maxRetries),
	}
}

// Delay computes the wait before retry attempt n (1-based), applying full
// jitter: a uniform random value between 0 and the exponential cap. When
// retryAfter is non-zero (parsed from a Retry-After signal), it takes
// precedence over the computed backoff.
func (p *RetryPolicy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	cap := p.BaseDelay << uint(attempt-1)
	if cap <= 0 || cap > p.MaxDelay {
		cap = p.MaxDelay
	}
	return time.Duration(rand.Int63n(int64(cap) + 1))
}

// Wait blocks for this attempt's computed delay, respecting both the
// limiter's pacing and ctx cancellation, and reports whether the caller
// should retry at all (attempt <= MaxRetries and the limiter grants
// permission).
func (p *RetryPolicy) Wait(ctx context.Context, attempt int, retryAfter time.Duration) (retryable bool, err error) {
	if attempt > p.MaxRetries {
		return false, nil
	}
	if !p.limiter.Allow() {
		return false, nil
	}

	delay := p.Delay(attempt, retryAfter)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
