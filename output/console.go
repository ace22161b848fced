package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/r4j3sh-com/reconprog/core"
)

// columnOrder fixes the column layout of known record lists.
var columnOrder = map[string][]string{
	"open_ports":    {"port", "protocol", "state", "service", "version"},
	"typed_records": {"name", "ttl", "type", "value"},
}

// ConsoleReporter renders results as pterm tables.
type ConsoleReporter struct {
	w io.Writer
	// ShowRaw also prints the tool's stdout and stderr.
	ShowRaw bool
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Result prints one task result with its intelligence.
func (r *ConsoleReporter) Result(res core.TaskResult) error {
	title := fmt.Sprintf("%s (%s)", res.Module, res.Profile)
	switch {
	case res.FromCache:
		title += " [cached]"
	case res.Elapsed > 0:
		title += fmt.Sprintf(" completed in %.1fs", res.Elapsed.Seconds())
	}
	fmt.Fprint(r.w, pterm.DefaultSection.Sprintln(title))

	if r.ShowRaw && res.Stdout != "" {
		fmt.Fprintln(r.w, pterm.DefaultBox.WithTitle("stdout").Sprint(strings.TrimRight(res.Stdout, "\n")))
	}
	if res.Stderr != "" && (r.ShowRaw || !res.OK()) {
		fmt.Fprintln(r.w, pterm.DefaultBox.WithTitle("stderr").Sprint(strings.TrimRight(res.Stderr, "\n")))
	}
	if !res.OK() {
		fmt.Fprint(r.w, pterm.Error.Sprintfln("exit code %d", res.ExitCode))
	}
	return r.Intelligence(res.Parsed)
}

// Intelligence prints parsed data: record lists as tables, string lists as
// bullet lists, and the remaining scalars as one field/value table.
func (r *ConsoleReporter) Intelligence(parsed core.Intelligence) error {
	if len(parsed) == 0 {
		return nil
	}
	var scalars [][]string
	for _, k := range detailKeys(parsed) {
		v := parsed[k]
		switch k {
		case "error":
			fmt.Fprint(r.w, pterm.Error.Sprintln(v))
			continue
		case "warning", "note":
			fmt.Fprint(r.w, pterm.Warning.Sprintln(v))
			continue
		}

		switch val := normalize(v).(type) {
		case []interface{}:
			if len(val) == 0 {
				scalars = append(scalars, []string{k, "(none)"})
				continue
			}
			if err := r.list(k, val); err != nil {
				return err
			}
		case map[string]interface{}:
			if len(val) == 0 {
				scalars = append(scalars, []string{k, "(none)"})
				continue
			}
			rows := make([][]string, 0, len(val))
			for _, name := range sortedMapKeys(val) {
				rows = append(rows, []string{name, cell(val[name])})
			}
			fmt.Fprint(r.w, pterm.DefaultSection.WithLevel(2).Sprintln(k))
			if err := r.Table([]string{"key", "value"}, rows); err != nil {
				return err
			}
		default:
			scalars = append(scalars, []string{k, cell(val)})
		}
	}
	if len(scalars) > 0 {
		return r.Table([]string{"field", "value"}, scalars)
	}
	return nil
}

func (r *ConsoleReporter) list(key string, items []interface{}) error {
	fmt.Fprint(r.w, pterm.DefaultSection.WithLevel(2).Sprintf("%s (%d)\n", key, len(items)))
	if first, ok := items[0].(map[string]interface{}); ok {
		cols := columnOrder[key]
		if cols == nil {
			cols = sortedMapKeys(first)
		}
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			m, _ := item.(map[string]interface{})
			row := make([]string, len(cols))
			for i, c := range cols {
				row[i] = cell(m[c])
			}
			rows = append(rows, row)
		}
		return r.Table(cols, rows)
	}

	bullets := make([]pterm.BulletListItem, 0, len(items))
	for _, item := range items {
		bullets = append(bullets, pterm.BulletListItem{Level: 0, Text: cell(item)})
	}
	s, err := pterm.DefaultBulletList.WithItems(bullets).Srender()
	if err != nil {
		return fmt.Errorf("failed to render list: %w", err)
	}
	fmt.Fprint(r.w, s)
	return nil
}

// Table renders rows under headers.
func (r *ConsoleReporter) Table(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	s, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(tableData).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(r.w, s)
	return nil
}

// BatchSummary prints the tally of a batch session.
func (r *ConsoleReporter) BatchSummary(report core.BatchReport, total int) error {
	fmt.Fprint(r.w, pterm.DefaultSection.Sprintln("Batch summary"))
	rows := [][]string{
		{"Target", report.Target},
		{"Total time", fmt.Sprintf("%.1fs", report.Elapsed.Round(100*time.Millisecond).Seconds())},
		{"Total tasks", fmt.Sprint(total)},
		{"Succeeded", fmt.Sprint(report.Succeeded)},
		{"Failed", fmt.Sprint(len(report.Failures))},
	}
	if err := r.Table([]string{"", ""}, rows); err != nil {
		return err
	}
	if len(report.Failures) == 0 {
		return nil
	}
	failures := make([][]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, []string{f.Module, f.Profile, f.Reason})
	}
	return r.Table([]string{"module", "profile", "reason"}, failures)
}

// Modules lists the registered modules.
func (r *ConsoleReporter) Modules(mods []core.Module) error {
	rows := make([][]string, 0, len(mods))
	for _, m := range mods {
		rows = append(rows, []string{m.Name(), m.Description(), fmt.Sprint(len(m.Profiles()))})
	}
	return r.Table([]string{"module", "description", "profiles"}, rows)
}

// Profiles lists the catalog of one module.
func (r *ConsoleReporter) Profiles(m core.Module, cfg *core.Config) error {
	rows := make([][]string, 0)
	for _, p := range m.Profiles() {
		name := p.Name
		if p.UserDefined {
			name += " *"
		}
		args := strings.Join(p.Args, " ")
		if p.Name == core.ProfileCustom || p.Name == core.ProfileManage {
			args = "-"
		}
		rows = append(rows, []string{
			name, args, p.Description, p.Recommendation,
			fmt.Sprintf("%ds", int(core.ResolveTimeout(cfg, m.Name(), p).Seconds())),
		})
	}
	return r.Table([]string{"profile", "args", "description", "recommendation", "timeout"}, rows)
}

// normalize turns typed values into their JSON-decoded shape so fresh and
// cached intelligence render the same way.
func normalize(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, int, float64:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

func cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprint(int64(val))
		}
		return fmt.Sprint(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = cell(item)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		data, _ := json.Marshal(val)
		return string(data)
	}
	return fmt.Sprint(v)
}

func sortedMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
