package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type report struct {
	Summary Summary      `json:"summary" yaml:"summary"`
	Files   []FileResult `json:"files" yaml:"files"`
}

// formatResults renders a report in the given format; empty means text.
func formatResults(results []FileResult, summary Summary, format string) (string, error) {
	switch format {
	case "json":
		bts, err := json.MarshalIndent(report{Summary: summary, Files: results}, "", "  ")
		return string(bts) + "\n", err
	case "yaml":
		bts, err := yaml.Marshal(report{Summary: summary, Files: results})
		return string(bts), err
	case "csv":
		return formatCSV(results)
	case "text", "":
		return formatText(results, summary), nil
	}
	return "", fmt.Errorf("unsupported format: %s", format)
}

func formatCSV(results []FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"file", "status", "content", "action", "target", "record_id", "record_name", "error", "duration_ms"}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Path,
			string(r.Status),
			r.Content,
			string(r.Action.Kind),
			r.Action.Target,
			r.RecordID,
			r.RecordName,
			r.Error,
			fmt.Sprintf("%d", r.Duration.Milliseconds()),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(results []FileResult, summary Summary) string {
	var output strings.Builder
	for _, r := range results {
		fmt.Fprintf(&output, "# %s\n", r.Path)
		switch r.Status {
		case StatusVerified:
			fmt.Fprintf(&output, "verified: %s (%s)\n", r.RecordName, r.Content)
		case StatusUnverified:
			fmt.Fprintf(&output, "unverified: %s\n", r.Content)
		case StatusNoCode:
			output.WriteString("no QR code found\n")
		case StatusError:
			fmt.Fprintf(&output, "error: %s\n", r.Error)
		}
	}
	fmt.Fprintf(&output, "\n%d files: %d verified, %d unverified, %d without code, %d failed (%v)\n",
		summary.Total, summary.Verified, summary.Unverified, summary.NoCode, summary.Failed,
		summary.Duration.Round(time.Millisecond))
	return output.String()
}
