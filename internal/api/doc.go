// Package api defines wire-format types, converters, and the HTTP client for
// the daemon API. It translates internal queue models into transport-friendly
// DTOs so CLI and other consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings alongside the coarse external state. Timestamps use
// RFC3339 with milliseconds.
package api
