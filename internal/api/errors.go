// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package api

import (
	"errors"
	"fmt"
)

// Kind classifies an API error at the transport boundary, so retry policies
// can switch on a stable discriminant instead of sniffing error messages.
type Kind string

// Error kinds.
const (
	// KindTransient covers transport failures and 5xx/429 responses.
	// Safe to retry.
	KindTransient Kind = "transient"
	// KindPermanent covers 4xx responses. Retrying will not help.
	KindPermanent Kind = "permanent"
	// KindApplication covers malformed responses and local programming
	// errors. Not retried.
	KindApplication Kind = "application"
)

// Error is a classified API failure.
type Error struct {
	Kind     Kind
	Endpoint string
	Status   int // 0 when the request never produced a response
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s: %s (status %d): %v", e.Endpoint, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("api %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or the empty string if err does
// not originate from this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsTransient reports whether err is a retryable API failure.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(status int) Kind {
	switch {
	case status >= 500, status == 429:
		return KindTransient
	default:
		return KindPermanent
	}
}
