package modules

import (
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/tidwall/gjson"

	"github.com/r4j3sh-com/reconprog/core"
)

// ParseCrtsh interprets crt.sh output for the given profile.
func ParseCrtsh(profile, stdout string) core.Intelligence {
	switch profile {
	case "basic":
		return parseCrtshBasic(stdout)
	case "verbose":
		return parseCrtshVerbose(stdout)
	}
	return core.Intelligence{"error": "Parse not implemented for profile: " + profile}
}

// parseCrtshBasic reads a newline-separated name list, falling back to the
// raw JSON array when the body is not a plain list.
func parseCrtshBasic(stdout string) core.Intelligence {
	if names := nameLines(stdout); len(names) > 0 {
		return core.Intelligence{"subdomains": names, "count": len(names)}
	}

	names, ok := certNames(stdout)
	if !ok {
		return core.Intelligence{
			"error":      "No certificates found or invalid response",
			"raw_output": stdout,
			"subdomains": []string{},
			"count":      0,
		}
	}
	if len(names) == 0 {
		return core.Intelligence{"error": "No certificates found", "subdomains": []string{}, "count": 0}
	}
	sort.Strings(names)
	return core.Intelligence{
		"subdomains": names,
		"count":      len(names),
		"note":       "parsed from raw JSON fallback",
	}
}

// nameLines returns the unique non-empty lines of a plain name list in
// first-seen order. JSON and markup bodies are not name lists.
func nameLines(stdout string) []string {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" || strings.ContainsAny(trimmed[:1], "[{<") {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		if !isCertName(line) {
			return nil
		}
		seen[line] = true
		names = append(names, line)
	}
	return names
}

// isCertName reports whether s looks like a certificate host name,
// wildcards included.
func isCertName(s string) bool {
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r == '.' || r == '-' || r == '_' || r == '*' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) >= 0 {
		return false
	}
	_, ok := dns.IsDomainName(s)
	return ok
}

var notBeforeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseNotBefore(s string) (time.Time, bool) {
	for _, layout := range notBeforeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCrtshVerbose(stdout string) core.Intelligence {
	body := strings.TrimSpace(stdout)
	if !gjson.Valid(body) || !gjson.Parse(body).IsArray() {
		return core.Intelligence{
			"error":      "Failed to parse JSON response",
			"raw_json":   stdout,
			"subdomains": []string{},
			"count":      0,
		}
	}

	names, _ := certNames(body)
	sort.Strings(names)
	intel := core.Intelligence{
		"subdomains": names,
		"count":      len(names),
		"raw_json":   stdout,
	}

	var first, last time.Time
	var firstRaw, lastRaw string
	gjson.Parse(body).ForEach(func(_, entry gjson.Result) bool {
		raw := entry.Get("not_before").String()
		t, ok := parseNotBefore(raw)
		if !ok {
			return true
		}
		if firstRaw == "" || t.Before(first) {
			first, firstRaw = t, raw
		}
		if lastRaw == "" || t.After(last) {
			last, lastRaw = t, raw
		}
		return true
	})
	if firstRaw != "" {
		intel["first_seen"] = firstRaw
		intel["last_seen"] = lastRaw
	}
	if len(names) == 0 {
		intel["error"] = "No certificates found"
	}
	return intel
}
