// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package identity defines the authenticated-entity types shared by the
// session and API layers: full-session users, anonymous players, and the
// tagged union binding an auth kind to its payload.
package identity

import "time"

// Kind discriminates the authenticated entity carried by an Identity.
type Kind string

// Authentication kinds.
const (
	KindUser   Kind = "user"
	KindPlayer Kind = "player"
	KindNone   Kind = "none"
)

// User roles as reported by the identity endpoints.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a full-session (cookie-backed) identity: a teacher, admin, or
// student with a registered account.
type User struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	DisplayName         string `json:"display_name"`
	Role                string `json:"role"`
	UserType            string `json:"user_type"`
	BirthDate           string `json:"birth_date"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
	Impersonated        bool   `json:"is_impersonated"`
}

// Player is an anonymous privacy-code session: a student without an account.
type Player struct {
	ID          string    `json:"id"`
	PrivacyCode string    `json:"privacy_code"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is a tagged union of the possible authenticated entities. The
// discriminant and payload are bound at construction, so a mismatched
// kind/entity pairing cannot be represented.
type Identity struct {
	kind   Kind
	user   *User
	player *Player
}

// None returns the unauthenticated identity.
func None() Identity {
	return Identity{kind: KindNone}
}

// ForUser returns an identity for a full-session user.
// A nil user yields None.
func ForUser(u *User) Identity {
	if u == nil {
		return None()
	}
	return Identity{kind: KindUser, user: u}
}

// ForPlayer returns an identity for an anonymous player session.
// A nil player yields None.
func ForPlayer(p *Player) Identity {
	if p == nil {
		return None()
	}
	return Identity{kind: KindPlayer, player: p}
}

// Kind returns the discriminant. The zero Identity reports KindNone.
func (id Identity) Kind() Kind {
	if id.kind == "" {
		return KindNone
	}
	return id.kind
}

// Authenticated reports whether an entity is present.
func (id Identity) Authenticated() bool {
	return id.Kind() != KindNone
}

// User returns the full-session user, if the identity holds one.
func (id Identity) User() (*User, bool) {
	return id.user, id.kind == KindUser
}

// Player returns the anonymous player, if the identity holds one.
func (id Identity) Player() (*Player, bool) {
	return id.player, id.kind == KindPlayer
}

// NeedsOnboarding reports whether a user still has onboarding steps to
// complete. A true onboarding_completed flag is not trusted on its own:
// the record must also carry the fields onboarding collects (birth date
// and declared user type), so partially-migrated records are re-onboarded
// instead of slipping through.
func NeedsOnboarding(u *User) bool {
	if u == nil {
		return false
	}
	return !(u.OnboardingCompleted && u.BirthDate != "" && u.UserType != "")
}
