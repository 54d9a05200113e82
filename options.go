package lkey

import (
	"time"

	"github.com/syssam/lkey/schema"
)

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithRegistry binds the session to the given schema registry instead of
// the process-wide one.
func WithRegistry(r *schema.Registry) SessionOption {
	return func(s *Session) { s.registry = r }
}

// WithKeyCache installs a cache for resolved logical-key lookups. Entries
// never change once written (primary keys are immutable), so the TTL only
// bounds memory, not staleness.
func WithKeyCache(c KeyCache, ttl time.Duration) SessionOption {
	return func(s *Session) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// callConfig carries the per-call side-effect flags. Side effects are
// applied only after the insert/update step completes, never mid-algorithm.
type callConfig struct {
	commit    bool
	refresh   bool
	noCascade bool
}

// CallOption configures one facade operation.
type CallOption func(*callConfig)

// WithCommit commits the session's transaction after the operation,
// including its cascaded child operations, completes. The session must be
// transactional.
func WithCommit() CallOption {
	return func(c *callConfig) { c.commit = true }
}

// WithRefresh re-reads each affected entity's persisted values into memory
// after the operation. The flag is propagated to cascaded child inserts.
func WithRefresh() CallOption {
	return func(c *callConfig) { c.refresh = true }
}

// WithoutCascade disables relationship cascading for the operation.
func WithoutCascade() CallOption {
	return func(c *callConfig) { c.noCascade = true }
}

func newCallConfig(opts []CallOption) callConfig {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// attachConfig carries the attach-operation flags.
type attachConfig struct {
	allowOverwrite bool
}

// AttachOption configures AttachKey and AttachKeys.
type AttachOption func(*attachConfig)

// AllowOverwrite permits attaching over an entity that already holds
// primary-key values. Without it, such an attach is an invariant
// violation and fails with an AlreadyKeyedError.
func AllowOverwrite() AttachOption {
	return func(c *attachConfig) { c.allowOverwrite = true }
}

func newAttachConfig(opts []AttachOption) attachConfig {
	var cfg attachConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
