// Package services provides shared plumbing for stage implementations:
// sentinel error markers with stage-aware wrapping, and context annotation
// helpers used to thread job, stage, and correlation identifiers through
// blocking operations.
package services
