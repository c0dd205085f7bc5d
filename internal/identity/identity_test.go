// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludora/sessionkit/internal/identity"
)

func TestIdentity_TaggedUnion(t *testing.T) {
	u := &identity.User{ID: "u1", Role: identity.RoleTeacher}
	p := &identity.Player{ID: "p1", PrivacyCode: "ABCD"}

	userID := identity.ForUser(u)
	assert.Equal(t, identity.KindUser, userID.Kind())
	assert.True(t, userID.Authenticated())
	gotUser, ok := userID.User()
	assert.True(t, ok)
	assert.Equal(t, u, gotUser)
	_, ok = userID.Player()
	assert.False(t, ok)

	playerID := identity.ForPlayer(p)
	assert.Equal(t, identity.KindPlayer, playerID.Kind())
	gotPlayer, ok := playerID.Player()
	assert.True(t, ok)
	assert.Equal(t, p, gotPlayer)

	none := identity.None()
	assert.Equal(t, identity.KindNone, none.Kind())
	assert.False(t, none.Authenticated())
}

func TestIdentity_NilEntityYieldsNone(t *testing.T) {
	assert.Equal(t, identity.KindNone, identity.ForUser(nil).Kind())
	assert.Equal(t, identity.KindNone, identity.ForPlayer(nil).Kind())
}

func TestIdentity_ZeroValueIsNone(t *testing.T) {
	var id identity.Identity
	assert.Equal(t, identity.KindNone, id.Kind())
	assert.False(t, id.Authenticated())
}

func TestNeedsOnboarding(t *testing.T) {
	tests := []struct {
		name string
		user *identity.User
		want bool
	}{
		{
			name: "nil user",
			user: nil,
			want: false,
		},
		{
			name: "flag unset",
			user: &identity.User{OnboardingCompleted: false},
			want: true,
		},
		{
			name: "complete with required fields",
			user: &identity.User{
				OnboardingCompleted: true,
				BirthDate:           "2010-04-12",
				UserType:            "student",
			},
			want: false,
		},
		{
			name: "flag set but user type missing",
			user: &identity.User{
				OnboardingCompleted: true,
				BirthDate:           "2010-04-12",
			},
			want: true,
		},
		{
			name: "flag set but birth date missing",
			user: &identity.User{
				OnboardingCompleted: true,
				UserType:            "teacher",
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.NeedsOnboarding(tt.user))
		})
	}
}
