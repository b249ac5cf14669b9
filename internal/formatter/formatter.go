// package formatter provides functions to export request history to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

const timeLayout = time.RFC3339

// ParseFormat accepts a format name case-insensitively; "md" and "text" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// Extension is the file extension used by [WriteExport].
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// Export encodes requests in the given format.
func Export(format Format, requests []*models.Request) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(requests)
	case FormatCSV:
		return ExportToCSV(requests)
	case FormatMarkdown:
		return ExportToMarkdown(requests)
	case FormatText:
		return ExportToText(requests)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

type requestJSON struct {
	ID         string `json:"id"`
	Input      string `json:"input"`
	Genre      string `json:"genre,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	TrackCount int    `json:"track_count"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ExportToJSON encodes requests as an indented JSON array.
func ExportToJSON(requests []*models.Request) ([]byte, error) {
	out := make([]requestJSON, 0, len(requests))
	for _, r := range requests {
		out = append(out, requestJSON{
			ID:         r.ID,
			Input:      r.Input,
			Genre:      r.Genre,
			PlaylistID: r.PlaylistID,
			DeviceName: r.DeviceName,
			TrackCount: r.TrackCount,
			Status:     string(r.Status),
			Error:      r.Error,
			CreatedAt:  r.CreatedAt.UTC().Format(timeLayout),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts requests to CSV with columns: ID, Created, Input, Genre, Status, Device, Tracks, Playlist, Error
func ExportToCSV(requests []*models.Request) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Created", "Input", "Genre", "Status", "Device", "Tracks", "Playlist", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range requests {
		record := []string{
			r.ID,
			r.CreatedAt.UTC().Format(timeLayout),
			r.Input,
			r.Genre,
			string(r.Status),
			r.DeviceName,
			strconv.Itoa(r.TrackCount),
			r.PlaylistID,
			r.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders requests as a titled Markdown list with a success summary.
func ExportToMarkdown(requests []*models.Request) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Casper request history\n\n")
	fmt.Fprintf(&buf, "**Requests**: %d\n", len(requests))
	fmt.Fprintf(&buf, "**Succeeded**: %d\n\n", countSucceeded(requests))

	if len(requests) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("## Requests\n\n")
	for i, r := range requests {
		fmt.Fprintf(&buf, "%d. %s %q", i+1, statusMark(r.Status), r.Input)
		if r.Genre != "" {
			fmt.Fprintf(&buf, " (%s)", r.Genre)
		}
		switch r.Status {
		case models.RequestSucceeded:
			fmt.Fprintf(&buf, " - %d tracks on %s", r.TrackCount, r.DeviceName)
		case models.RequestFailed:
			fmt.Fprintf(&buf, " - %s", r.Error)
		}
		fmt.Fprintf(&buf, " [%s]\n", r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	return buf.Bytes(), nil
}

// ExportToText converts requests to plain text, one line per request
func ExportToText(requests []*models.Request) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Requests: %d (succeeded: %d)\n\n", len(requests), countSucceeded(requests))
	for i, r := range requests {
		fmt.Fprintf(&buf, "%d. [%s] %s - %s\n", i+1, r.Status, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Input)
	}

	return buf.Bytes(), nil
}

// WriteExport writes requests to path in the given format.
//
// Defaults to casper_history.{ext} when path is empty.
func WriteExport(format Format, requests []*models.Request, path string) (string, error) {
	if path == "" {
		path = "casper_history." + format.Extension()
	}

	data, err := Export(format, requests)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func countSucceeded(requests []*models.Request) int {
	n := 0
	for _, r := range requests {
		if r.Status == models.RequestSucceeded {
			n++
		}
	}
	return n
}

func statusMark(s models.RequestStatus) string {
	if s == models.RequestSucceeded {
		return "✓"
	}
	return "✗"
}
