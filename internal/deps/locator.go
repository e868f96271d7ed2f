package deps

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"slidecast/internal/config"
)

// Tool names recognized by the locator.
const (
	ToolSoffice  = "soffice"
	ToolPdftoppm = "pdftoppm"
	ToolFFmpeg   = "ffmpeg"
	ToolFFprobe  = "ffprobe"
	ToolEdgeTTS  = "edge-tts"
	ToolUvx      = "uvx"
	ToolOpenCC   = "opencc"
)

// macOS LibreOffice installs outside PATH; this is the stock app bundle location.
const darwinSofficePath = "/Applications/LibreOffice.app/Contents/MacOS/soffice"

// Locator resolves external tool binaries. Resolution prefers an explicitly
// configured location, then PATH lookup of the configured value, then PATH
// lookup of the bare tool name. Results are cached, so repeated lookups are
// stable for the lifetime of the locator.
type Locator struct {
	mu         sync.Mutex
	configured map[string]string
	cache      map[string]string
}

// NewLocator builds a locator from the configured tool table.
func NewLocator(tools config.Tools) *Locator {
	return &Locator{
		configured: map[string]string{
			ToolSoffice:  tools.Soffice,
			ToolPdftoppm: tools.Pdftoppm,
			ToolFFmpeg:   tools.FFmpeg,
			ToolFFprobe:  tools.FFprobe,
			ToolEdgeTTS:  tools.EdgeTTS,
			ToolUvx:      tools.Uvx,
			ToolOpenCC:   tools.OpenCC,
		},
		cache: make(map[string]string),
	}
}

// Locate resolves a tool to an executable path. The second return value is
// false when the tool cannot be found.
func (l *Locator) Locate(tool string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[tool]; ok {
		return cached, cached != ""
	}

	resolved := l.resolve(tool)
	l.cache[tool] = resolved
	return resolved, resolved != ""
}

func (l *Locator) resolve(tool string) string {
	configured := strings.TrimSpace(l.configured[tool])

	if configured != "" {
		if info, err := os.Stat(configured); err == nil && isExecutable(info) {
			return configured
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
	}

	if path, err := exec.LookPath(tool); err == nil {
		return path
	}

	if tool == ToolSoffice && runtime.GOOS == "darwin" {
		if info, err := os.Stat(darwinSofficePath); err == nil && isExecutable(info) {
			return darwinSofficePath
		}
	}

	return ""
}

// Requirements describes the external binaries the pipeline shells out to,
// resolved through this locator so status output matches runtime behaviour.
func (l *Locator) Requirements() []Requirement {
	reqs := []Requirement{
		{Name: "LibreOffice", Command: ToolSoffice, Description: "Converts slide decks to PDF"},
		{Name: "pdftoppm", Command: ToolPdftoppm, Description: "Rasterizes PDF pages to PNG"},
		{Name: "FFmpeg", Command: ToolFFmpeg, Description: "Builds and concatenates video segments"},
		{Name: "ffprobe", Command: ToolFFprobe, Description: "Measures narration clip durations"},
		{Name: "edge-tts", Command: ToolEdgeTTS, Description: "Synthesizes narration audio"},
		{Name: "uvx", Command: ToolUvx, Description: "Runs WhisperX for transcription"},
		{Name: "OpenCC", Command: ToolOpenCC, Description: "Converts traditional Chinese subtitles", Optional: true},
	}
	for i := range reqs {
		if resolved, ok := l.Locate(reqs[i].Command); ok {
			reqs[i].Command = resolved
		}
	}
	return reqs
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
