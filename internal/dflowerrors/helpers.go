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

package dflowerrors

import "errors"

// IsNotInContext reports whether err is (or wraps) a NotInContextError.
func IsNotInContext(err error) bool {
	var target *NotInContextError
	return errors.As(err, &target)
}

// IsUnavailableInContext reports whether err is (or wraps) an
// UnavailableInContextError.
func IsUnavailableInContext(err error) bool {
	var target *UnavailableInContextError
	return errors.As(err, &target)
}

// IsNonSerializable reports whether err is (or wraps) a
// NonSerializableError.
func IsNonSerializable(err error) bool {
	var target *NonSerializableError
	return errors.As(err, &target)
}

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRuntimeError reports whether err is (or wraps) a RuntimeError.
func IsRuntimeError(err error) bool {
	var target *RuntimeError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTerminalRun reports whether err is (or wraps) a TerminalRunError.
func IsTerminalRun(err error) bool {
	var target *TerminalRunError
	return errors.As(err, &target)
}

// transientMarker is the interface step handlers implement on their own
// error types to signal "retry me" to internal/steps, without needing
// those errors to be one of this package's concrete types (step handler
// code is caller-supplied, not part of this taxonomy).
type transientMarker interface {
	IsTransient() bool
}

// IsTransient reports whether err asks to be retried: either it implements
// ErrorClassifier and IsRetryable() is true, or it implements the narrower
// transientMarker interface and IsTransient() is true. Any error matching
// neither is treated as fatal.
func IsTransient(err error) bool {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.IsRetryable()
	}
	var marker transientMarker
	if errors.As(err, &marker) {
		return marker.IsTransient()
	}
	return false
}

// Wrap adds context to err, returning nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapped{message: message, cause: err}
}

type wrapped struct {
	message string
	cause   error
}

func (w *wrapped) Error() string { return w.message + ": " + w.cause.Error() }
func (w *wrapped) Unwrap() error { return w.cause }
