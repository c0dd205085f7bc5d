// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package portal

// Method is one authentication check the strategy executor can attempt.
type Method string

// Authentication methods.
const (
	MethodFirebase Method = "firebase"
	MethodPlayer   Method = "player"
)

// Strategy is the ordered list of authentication methods for a portal
// context. Order matters: the full-session check runs before the anonymous
// check so an admin browsing the student portal is recognised as the admin
// rather than silently treated as anonymous.
type Strategy struct {
	Portal         Type
	Methods        []Method
	AllowAnonymous bool
}

// StrategyFor derives the authentication strategy from a portal context.
// It is a pure function; strategies are never persisted.
func StrategyFor(pc Context) Strategy {
	if pc.Portal == Teacher {
		return Strategy{
			Portal:         Teacher,
			Methods:        []Method{MethodFirebase},
			AllowAnonymous: false,
		}
	}

	// authed_only requires a full session; every other student mode may
	// settle into an anonymous visit.
	if pc.AccessMode == AuthedOnly {
		return Strategy{
			Portal:         Student,
			Methods:        []Method{MethodFirebase},
			AllowAnonymous: false,
		}
	}

	return Strategy{
		Portal:         Student,
		Methods:        []Method{MethodFirebase, MethodPlayer},
		AllowAnonymous: true,
	}
}
