package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

func WriteMarkdownReport(fs afero.Fs, session Session, path string) error {
	return writeFile(fs, path, []byte(RenderMarkdown(session)))
}

// RenderMarkdown renders the session as a Markdown report.
func RenderMarkdown(session Session) string {
	var sb strings.Builder
	sum := Summarize(session.Results)

	// --- Summary Section ---
	sb.WriteString("# Recon Report\n\n")
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Target:** `%s`\n", session.Target))
	sb.WriteString(fmt.Sprintf("- **Generated:** %s\n", session.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("- **Tasks:** %d succeeded, %d failed\n", countOK(session), len(session.Failures)))
	if len(sum.OpenPorts) > 0 {
		sb.WriteString(fmt.Sprintf("- **Open Ports:** %v\n", sum.OpenPorts))
	}
	if sum.OSGuess != "" {
		sb.WriteString(fmt.Sprintf("- **OS Guess:** %s\n", sum.OSGuess))
	}
	if len(sum.Technologies) > 0 {
		sb.WriteString(fmt.Sprintf("- **Tech Detected:** %v\n", sum.Technologies))
	}
	if sum.Registrar != "" {
		sb.WriteString(fmt.Sprintf("- **Registrar:** %s\n", sum.Registrar))
	}
	if len(sum.NameServers) > 0 {
		sb.WriteString(fmt.Sprintf("- **Name Servers:** %s\n", strings.Join(sum.NameServers, ", ")))
	}
	if len(sum.Subdomains) > 0 {
		sb.WriteString(fmt.Sprintf("- **Subdomains:** %d\n", len(sum.Subdomains)))
	}
	if len(session.Failures) > 0 {
		sb.WriteString("- **Failures:**\n")
		for _, f := range session.Failures {
			sb.WriteString(fmt.Sprintf("  - %s (%s): %s\n", f.Module, f.Profile, f.Reason))
		}
	}
	sb.WriteString("\n---\n\n")

	// --- Detailed Results ---
	for _, r := range session.Results {
		sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", r.Module, r.Profile))
		status := fmt.Sprintf("exit code %d", r.ExitCode)
		if r.FromCache {
			status += ", cached"
		}
		sb.WriteString(fmt.Sprintf("_%s, %s_\n\n", r.Timestamp.Format("2006-01-02 15:04:05"), status))
		for _, k := range detailKeys(r.Parsed) {
			sb.WriteString(fmt.Sprintf("### %s\n\n", strings.ToTitle(k)))
			sb.WriteString("```json\n")
			pretty, err := json.MarshalIndent(r.Parsed[k], "", "  ")
			if err != nil {
				sb.WriteString(fmt.Sprintf("%v\n", r.Parsed[k]))
			} else {
				sb.WriteString(string(pretty) + "\n")
			}
			sb.WriteString("```\n\n")
		}
	}
	return sb.String()
}

func countOK(session Session) int {
	n := 0
	for _, r := range session.Results {
		if r.OK() {
			n++
		}
	}
	return n
}
