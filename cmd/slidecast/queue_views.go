package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slidecast/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(jobs []api.QueueJob) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := api.SortJobsNewestFirst(jobs)

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		title := strings.TrimSpace(job.Title)
		if title == "" {
			if source := strings.TrimSpace(job.SourcePath); source != "" {
				title = filepath.Base(source)
			} else {
				title = "Unknown"
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			title,
			formatStatusLabel(job.Status),
			formatProgress(job.Progress),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatProgress(progress api.QueueProgress) string {
	stage := strings.TrimSpace(progress.Stage)
	if stage == "" {
		return ""
	}
	return fmt.Sprintf("%s %d%%", stage, int(progress.Percent))
}

func formatDisplayTime(value string) string {
	parsed := api.ParseQueueTime(value)
	if parsed.IsZero() {
		return strings.TrimSpace(value)
	}
	return parsed.Local().Format(time.DateTime)
}
