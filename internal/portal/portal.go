// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

// Package portal resolves which deployment context (teacher or student
// portal) the current origin represents and derives the credential policy
// network and realtime calls should use.
package portal

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/settings"
)

// Type is the deployment context.
type Type string

// Portal types.
const (
	Teacher Type = "teacher"
	Student Type = "student"
)

// CredentialPolicy says whether calls should carry identity cookies.
type CredentialPolicy string

// Credential policies.
const (
	WithCredentials    CredentialPolicy = "with_credentials"
	WithoutCredentials CredentialPolicy = "without_credentials"
	TryBoth            CredentialPolicy = "try_both"
)

// AccessMode is the server-configured students access mode.
type AccessMode string

// Students access modes.
const (
	InviteOnly AccessMode = "invite_only"
	AuthedOnly AccessMode = "authed_only"
	All        AccessMode = "all"
)

// Context is a resolved portal context. It is derived fresh on every
// resolution call; an admin flipping the access mode mid-session takes
// effect on the next initialize/connect.
type Context struct {
	Portal     Type
	Policy     CredentialPolicy
	AccessMode AccessMode // empty for teacher portals
	AuthMethod string     // debug only
}

// PublicSettingsFetcher fetches the unauthenticated settings subset.
type PublicSettingsFetcher interface {
	PublicSettings(ctx context.Context) (*settings.Public, error)
}

// Resolver classifies the configured origin and derives credential policy
// from the students access mode.
type Resolver struct {
	cfg    config.PortalConfig
	fetch  PublicSettingsFetcher
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg config.PortalConfig, fetch PublicSettingsFetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, fetch: fetch, logger: logger}
}

// Resolve computes the current portal context. It never fails: a teacher
// portal needs no remote data, and a student portal falls back to the most
// permissive mode when the public settings fetch fails, which still maps to
// the least-identifying credential policy.
func (r *Resolver) Resolve(ctx context.Context) Context {
	if classifyOrigin(r.cfg) == Teacher {
		return teacherContext()
	}

	mode := All
	if r.fetch != nil {
		pub, err := r.fetch.PublicSettings(ctx)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "public settings fetch failed, defaulting access mode", "error", err, "default", All)
		case pub != nil && pub.StudentsAccessMode != "":
			mode = AccessMode(pub.StudentsAccessMode)
		}
	}

	return studentContext(mode)
}

// ResolveLocal computes the portal context from configuration alone, with no
// network access. The student portal gets the most permissive mode, the same
// fallback a failed public settings fetch produces.
func (r *Resolver) ResolveLocal() Context {
	if classifyOrigin(r.cfg) == Teacher {
		return teacherContext()
	}
	return studentContext(All)
}

func teacherContext() Context {
	// Teacher identity is always backed by a full session.
	return Context{
		Portal:     Teacher,
		Policy:     WithCredentials,
		AuthMethod: "firebase",
	}
}

func studentContext(mode AccessMode) Context {
	return Context{
		Portal:     Student,
		Policy:     policyForMode(mode),
		AccessMode: mode,
		AuthMethod: "firebase_or_player",
	}
}

// policyForMode maps a students access mode to a credential policy. Unknown
// modes fail safe toward the least-privileged, least-identifying connection.
func policyForMode(mode AccessMode) CredentialPolicy {
	switch mode {
	case InviteOnly:
		// The server still accepts a player-session cookie if present but
		// never requires a full identity session.
		return TryBoth
	case AuthedOnly:
		return WithCredentials
	case All:
		return TryBoth
	default:
		return TryBoth
	}
}

// classifyOrigin applies the static host rules: exact match against the
// student domain, with a loopback-subdomain or alternate-port fallback for
// local development.
func classifyOrigin(cfg config.PortalConfig) Type {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Host == "" {
		return Teacher
	}

	host := origin.Hostname()
	if host == cfg.StudentDomain {
		return Student
	}

	// Local development: the student portal runs on student.localhost or on
	// the dedicated alternate port.
	if strings.HasPrefix(host, "student.") && (strings.HasSuffix(host, "localhost") || host == "student.127.0.0.1") {
		return Student
	}
	if (host == "localhost" || host == "127.0.0.1") && origin.Port() == "5174" {
		return Student
	}

	return Teacher
}
