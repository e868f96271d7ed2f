package transcribe

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// minSRTBytes is the smallest file size a subtitle file with at least one cue
// can have. WhisperX occasionally writes a header-only file when it produces
// no segments.
const minSRTBytes = 5

// validateSRT checks that a generated subtitle file contains at least one cue
// with a timing line. Returns an error describing the defect when it does not.
func validateSRT(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat subtitle file: %w", err)
	}
	if info.Size() <= minSRTBytes {
		return fmt.Errorf("subtitle file too small (%d bytes)", info.Size())
	}
	cues, err := countCues(path)
	if err != nil {
		return fmt.Errorf("read subtitle file: %w", err)
	}
	if cues == 0 {
		return fmt.Errorf("subtitle file contains no timed cues")
	}
	return nil
}

// countCues counts timing lines ("start --> end") in an SRT file, validating
// that at least the end timestamp parses.
func countCues(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		if len(parts) != 2 {
			continue
		}
		if _, err := parseTimestamp(parts[1]); err != nil {
			continue
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma for milliseconds; tolerate a period too.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
