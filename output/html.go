package output

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/spf13/afero"
)

func WriteHTMLReport(fs afero.Fs, session Session, path string) error {
	return writeFile(fs, path, []byte(RenderHTML(session)))
}

// RenderHTML renders the session as a standalone HTML page.
func RenderHTML(session Session) string {
	var sb strings.Builder
	sum := Summarize(session.Results)

	// --- HTML Structure ---
	sb.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Recon Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 1000px; margin: 20px auto; padding: 0 20px; }
        h1, h2, h3 { color: #2c3e50; }
        h1 { text-align: center; border-bottom: 2px solid #ecf0f1; padding-bottom: 10px; }
        .summary, .module { border: 1px solid #ddd; border-radius: 8px; padding: 20px; margin-bottom: 25px; background: #f9f9f9; box-shadow: 0 2px 4px rgba(0,0,0,0.05); }
        .summary h2, .module h2 { margin-top: 0; }
        .meta { color: #7f8c8d; font-size: 0.9em; }
        .failed { color: #c0392b; }
        pre { background: #2d2d2d; color: #f1f1f1; padding: 15px; border-radius: 5px; white-space: pre-wrap; word-wrap: break-word; font-family: "Fira Code", "Courier New", monospace; }
        ul { list-style-type: square; padding-left: 20px; }
        code { background: #ecf0f1; padding: 2px 5px; border-radius: 4px; color: #c0392b; }
    </style>
</head>
<body>`)
	sb.WriteString("<h1>Recon Report</h1>")

	// Summary Box
	sb.WriteString(`<div class="summary"><h2>Summary</h2><ul>`)
	sb.WriteString(fmt.Sprintf("<li><strong>Target:</strong> <code>%s</code></li>", html.EscapeString(session.Target)))
	sb.WriteString(fmt.Sprintf("<li><strong>Generated:</strong> %s</li>", session.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("<li><strong>Tasks:</strong> %d succeeded, %d failed</li>", countOK(session), len(session.Failures)))
	if len(sum.OpenPorts) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Open Ports:</strong> %v</li>", sum.OpenPorts))
	}
	if sum.OSGuess != "" {
		sb.WriteString(fmt.Sprintf("<li><strong>OS Guess:</strong> %s</li>", html.EscapeString(sum.OSGuess)))
	}
	if len(sum.Technologies) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Tech Detected:</strong> %s</li>", html.EscapeString(strings.Join(sum.Technologies, ", "))))
	}
	if sum.Registrar != "" {
		sb.WriteString(fmt.Sprintf("<li><strong>Registrar:</strong> %s</li>", html.EscapeString(sum.Registrar)))
	}
	if len(sum.NameServers) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Name Servers:</strong> %s</li>", html.EscapeString(strings.Join(sum.NameServers, ", "))))
	}
	if len(sum.Subdomains) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Subdomains:</strong> %d</li>", len(sum.Subdomains)))
	}
	if len(session.Failures) > 0 {
		sb.WriteString(`<li><strong>Failures:</strong><ul>`)
		for _, f := range session.Failures {
			sb.WriteString(fmt.Sprintf(`<li class="failed">%s (%s): %s</li>`,
				html.EscapeString(f.Module), html.EscapeString(f.Profile), html.EscapeString(f.Reason)))
		}
		sb.WriteString("</ul></li>")
	}
	sb.WriteString("</ul></div>")

	// Detailed Results
	for _, r := range session.Results {
		sb.WriteString(fmt.Sprintf(`<div class="module"><h2>%s (%s)</h2>`, html.EscapeString(r.Module), html.EscapeString(r.Profile)))
		status := fmt.Sprintf("exit code %d", r.ExitCode)
		if r.FromCache {
			status += ", cached"
		}
		sb.WriteString(fmt.Sprintf(`<p class="meta">%s, %s</p>`, r.Timestamp.Format("2006-01-02 15:04:05"), status))
		for _, k := range detailKeys(r.Parsed) {
			sb.WriteString(fmt.Sprintf("<h3>%s</h3>", html.EscapeString(strings.ToTitle(k))))
			pretty, err := json.MarshalIndent(r.Parsed[k], "", "  ")
			if err != nil {
				sb.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(fmt.Sprintf("%v", r.Parsed[k]))))
			} else {
				sb.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(string(pretty))))
			}
		}
		sb.WriteString("</div>")
	}
	sb.WriteString("</body></html>")
	return sb.String()
}
