package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sagarc03/packway"
)

// Formatter formats command results for output.
type Formatter interface {
	FormatExchanges(w io.Writer, result packway.ListResult) error
	FormatRepositories(w io.Writer, repos []string) error
}

func newFormatter(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct{}

func (f *HumanFormatter) FormatExchanges(w io.Writer, result packway.ListResult) error {
	if len(result.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No exchanges found")
		return nil
	}

	maxRepoLen := len("REPOSITORY")
	for i := range result.Items {
		maxRepoLen = max(maxRepoLen, len(result.Items[i].Repository))
	}
	maxRepoLen = min(maxRepoLen, 60)

	_, _ = fmt.Fprintf(w, "%-19s  %-*s  %-16s  %-6s  %10s  %10s  %s\n",
		"STARTED", maxRepoLen, "REPOSITORY", "SERVICE", "STATUS", "IN", "OUT", "DURATION")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s  %s\n",
		strings.Repeat("-", 19), strings.Repeat("-", maxRepoLen), strings.Repeat("-", 16),
		strings.Repeat("-", 6), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 8))

	for i := range result.Items {
		e := &result.Items[i]
		repo := e.Repository
		if len(repo) > maxRepoLen {
			repo = "..." + repo[len(repo)-maxRepoLen+3:]
		}
		service := string(e.Service)
		if e.AdvertiseRefs {
			service = "refs:" + strings.TrimPrefix(service, "git-")
		}
		_, _ = fmt.Fprintf(w, "%-19s  %-*s  %-16s  %-6s  %10s  %10s  %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			maxRepoLen, repo,
			service,
			e.Status,
			formatSize(e.BytesIn),
			formatSize(e.BytesOut),
			e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
		)
	}

	_, _ = fmt.Fprintf(w, "\n%d exchange(s)\n", len(result.Items))
	if result.NextCursor != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --cursor %q\n", result.NextCursor)
	}

	return nil
}

func (f *HumanFormatter) FormatRepositories(w io.Writer, repos []string) error {
	if len(repos) == 0 {
		_, _ = fmt.Fprintln(w, "No repositories found")
		return nil
	}
	for _, repo := range repos {
		_, _ = fmt.Fprintln(w, repo)
	}
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatExchanges(w io.Writer, result packway.ListResult) error {
	if result.Items == nil {
		result.Items = []packway.Exchange{}
	}
	return writeJSON(w, result)
}

func (f *JSONFormatter) FormatRepositories(w io.Writer, repos []string) error {
	if repos == nil {
		repos = []string{}
	}
	return writeJSON(w, struct {
		Repositories []string `json:"repositories"`
	}{repos})
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
