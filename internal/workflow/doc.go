// Package workflow advances queue jobs through the conversion pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// jobs into the registered stage handlers (preparer, composer) while
// capturing progress and failure metadata. It also aggregates queue stats and
// calls stage health checks for the daemon status endpoint.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition jobs; this package is the
// authoritative home for that coordination logic.
package workflow
