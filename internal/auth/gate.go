// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/samber/oops"

// GateState is the outcome of an authorization check.
type GateState int

// Gate states.
const (
	GateUnauthenticated GateState = iota
	GateInvalid
	GateAuthorized
)

func (s GateState) String() string {
	switch s {
	case GateUnauthenticated:
		return "unauthenticated"
	case GateInvalid:
		return "invalid"
	case GateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decision is the result of Authorize. Claims is set only when State is
// GateAuthorized; Err carries the verifier error when State is GateInvalid.
type Decision struct {
	State  GateState
	Claims *Claims
	Err    error
}

// Authorized reports whether the request may proceed.
func (d Decision) Authorized() bool {
	return d.State == GateAuthorized
}

// Authorize decides whether a request presenting token may proceed.
// An empty token is unauthenticated. Any verifier failure, including a
// panic inside the verifier, yields GateInvalid.
func Authorize(v TokenVerifier, token string) (d Decision) {
	if token == "" {
		return Decision{State: GateUnauthenticated}
	}

	defer func() {
		if r := recover(); r != nil {
			d = Decision{
				State: GateInvalid,
				Err:   oops.Code("SESSION_INVALID").With("panic", r).Wrap(ErrInvalidToken),
			}
		}
	}()

	claims, err := v.Verify(token)
	if err != nil {
		return Decision{State: GateInvalid, Err: err}
	}
	if claims == nil {
		return Decision{State: GateInvalid, Err: oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)}
	}
	return Decision{State: GateAuthorized, Claims: claims}
}
