package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/r4j3sh-com/reconprog/core"
)

// Output formats for single results.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatNone = "none"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	keyColor    = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
)

// WriteResult renders one result in the given format.
func WriteResult(w io.Writer, res core.TaskResult, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(res.Parsed, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatText, "":
		return writeText(w, res)
	case FormatNone:
		return nil
	}
	return fmt.Errorf("unknown output format: %s", format)
}

func writeText(w io.Writer, res core.TaskResult) error {
	title := fmt.Sprintf("== %s (%s) on %s ==", res.Module, res.Profile, res.Target)
	headerColor.Fprintln(w, title)
	status := fmt.Sprintf("exit code %d", res.ExitCode)
	if res.FromCache {
		status += ", served from cache"
	}
	if res.OK() {
		fmt.Fprintln(w, status)
	} else {
		errColor.Fprintln(w, status)
		if res.Stderr != "" {
			errColor.Fprintln(w, strings.TrimSpace(res.Stderr))
		}
	}

	keys := make([]string, 0, len(res.Parsed))
	for k := range res.Parsed {
		switch k {
		case "raw", "raw_output", "raw_json", "_cached":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := res.Parsed[k]
		switch k {
		case "error":
			errColor.Fprintf(w, "%s: %v\n", k, v)
			continue
		case "warning", "note":
			warnColor.Fprintf(w, "%s: %v\n", k, v)
			continue
		}
		keyColor.Fprintf(w, "%s:", k)
		writeValue(w, v)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeValue prints scalars inline and lists or maps one item per line.
func writeValue(w io.Writer, v interface{}) {
	if v == nil {
		fmt.Fprintln(w, " -")
		return
	}
	switch val := v.(type) {
	case string, bool, int, float64:
		fmt.Fprintf(w, " %v\n", val)
		return
	case []string:
		if len(val) == 0 {
			fmt.Fprintln(w, " (none)")
			return
		}
		fmt.Fprintln(w)
		for _, s := range val {
			fmt.Fprintf(w, "  - %s\n", s)
		}
		return
	}

	// Structured values are shown as compact JSON lines.
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(w, " %v\n", v)
		return
	}
	var items []json.RawMessage
	if json.Unmarshal(data, &items) == nil {
		if len(items) == 0 {
			fmt.Fprintln(w, " (none)")
			return
		}
		fmt.Fprintln(w)
		for _, item := range items {
			fmt.Fprintf(w, "  - %s\n", unquote(item))
		}
		return
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) == nil {
		fmt.Fprintln(w)
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, unquote(fields[name]))
		}
		return
	}
	fmt.Fprintf(w, " %s\n", data)
}

func unquote(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
