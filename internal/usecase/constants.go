package usecase

import "time"

const (
	// ResultCacheTTL is how long terminal results stay in the result cache.
	ResultCacheTTL = 24 * time.Hour

	// DefaultComplianceTimeout bounds a compliance call when none is configured.
	DefaultComplianceTimeout = 2 * time.Second

	// MaxConflictRetries bounds whole-scope retries after a concurrency conflict.
	MaxConflictRetries = 5

	// StaleTransactionAge is how old a non-terminal record must be before recovery fails it.
	StaleTransactionAge = 5 * time.Minute

	// SystemActor is recorded when a request carries no actor.
	SystemActor = "system"

	// MetadataFallbackUsed marks a compliance decision that came from the fallback path.
	MetadataFallbackUsed = "fallback_used"
	// MetadataComplianceOutcome records the applied compliance outcome.
	MetadataComplianceOutcome = "compliance_outcome"
	// MetadataComplianceReasons records the reasons returned with the decision.
	MetadataComplianceReasons = "compliance_reasons"
)
