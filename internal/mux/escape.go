package mux

import "strings"

// filterEscape escapes a value for use inside a single-quoted ffmpeg
// filtergraph argument. Backslashes and colons are significant to the
// filtergraph parser, and a literal single quote has to close the quoted
// span, emit an escaped quote, and reopen it.
func filterEscape(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `:`, `\:`)
	value = strings.ReplaceAll(value, `'`, `'\''`)
	return value
}

// playlistEscape escapes a path for a concat demuxer playlist entry, which
// wraps paths in single quotes.
func playlistEscape(path string) string {
	return strings.ReplaceAll(path, `'`, `'\''`)
}
