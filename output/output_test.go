package output

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r4j3sh-com/reconprog/core"
)

type port struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service"`
	Version  string `json:"version"`
}

func sampleResults() []core.TaskResult {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []core.TaskResult{
		{
			Module: "nmap", Profile: "basic", Target: "example.com", Timestamp: ts,
			Parsed: core.Intelligence{
				"open_ports": []port{
					{Port: 443, Protocol: "tcp", State: "open", Service: "https"},
					{Port: 22, Protocol: "tcp", State: "open", Service: "ssh", Version: "OpenSSH 8.2p1"},
					{Port: 161, Protocol: "udp", State: "open|filtered", Service: "snmp"},
				},
				"os_guess":   nil,
				"raw_output": "lots of text",
			},
		},
		{
			// Shaped like a cache hit: decoded JSON values.
			Module: "crtsh", Profile: "basic", Target: "example.com", Timestamp: ts, FromCache: true,
			Parsed: core.Intelligence{
				"subdomains": []interface{}{"b.example.com", "a.example.com"},
				"count":      float64(2),
				"_cached":    true,
			},
		},
		{
			Module: "whois", Profile: "basic", Target: "example.com", Timestamp: ts, ExitCode: 0,
			Parsed: core.Intelligence{
				"registrar":    "Example Corp",
				"name_servers": []string{"NS2.EXAMPLE.COM", "NS1.EXAMPLE.COM"},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())
	assert.Equal(t, []int{22, 443}, s.OpenPorts)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, s.Subdomains)
	assert.Equal(t, []string{"NS1.EXAMPLE.COM", "NS2.EXAMPLE.COM"}, s.NameServers)
	assert.Equal(t, "Example Corp", s.Registrar)
	assert.Empty(t, s.OSGuess)
	assert.False(t, s.Empty())
	assert.True(t, Summarize(nil).Empty())
}

func TestRenderMarkdown(t *testing.T) {
	session := Session{
		Target:      "example.com",
		GeneratedAt: time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC),
		Results:     sampleResults(),
		Failures:    []core.Failure{{Module: "dig", Profile: "any", Reason: "exit code 124: Command timed out after 30 seconds"}},
	}
	md := RenderMarkdown(session)

	assert.Contains(t, md, "- **Target:** `example.com`")
	assert.Contains(t, md, "- **Tasks:** 3 succeeded, 1 failed")
	assert.Contains(t, md, "- **Open Ports:** [22 443]")
	assert.Contains(t, md, "- **Registrar:** Example Corp")
	assert.Contains(t, md, "  - dig (any): exit code 124")
	assert.Contains(t, md, "## crtsh (basic)")
	assert.Contains(t, md, "exit code 0, cached")
	assert.Contains(t, md, "### OPEN_PORTS")
	assert.NotContains(t, md, "lots of text")
	assert.NotContains(t, md, "_CACHED")
}

func TestRenderHTMLEscapes(t *testing.T) {
	session := Session{Target: "<script>", Results: []core.TaskResult{{
		Module: "whois", Profile: "basic",
		Parsed: core.Intelligence{"registrar": "A & B <Registrar>"},
	}}}
	page := RenderHTML(session)
	assert.Contains(t, page, "<code>&lt;script&gt;</code>")
	assert.Contains(t, page, "A &amp; B &lt;Registrar&gt;")
	assert.True(t, strings.HasSuffix(page, "</body></html>"))
}

func TestWriteJSONReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	session := NewSession("example.com", sampleResults(), nil)
	require.NoError(t, WriteJSONReport(fs, session, "/reports/session.json"))

	data, err := afero.ReadFile(fs, "/reports/session.json")
	require.NoError(t, err)
	var decoded struct {
		Target  string `json:"target"`
		Results []struct {
			Module    string `json:"module"`
			FromCache bool   `json:"from_cache"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "example.com", decoded.Target)
	require.Len(t, decoded.Results, 3)
	assert.True(t, decoded.Results[1].FromCache)
}

func TestSaveParsed(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := sampleResults()[2]
	res.Target = "https://example.com/x"

	path, err := SaveParsed(fs, "recon-output", res)
	require.NoError(t, err)
	assert.Equal(t, "recon-output/whois_https_example.com_x_basic_20240501_100000.json", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"registrar": "Example Corp"`)
}

func TestSaveParsedSanitizesProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := sampleResults()[2]
	res.Profile = "../../etc/passwd"

	path, err := SaveParsed(fs, "recon-output", res)
	require.NoError(t, err)
	assert.Equal(t, "recon-output", filepath.Dir(path))
	assert.Equal(t, "whois_example.com_.._.._etc_passwd_20240501_100000.json", filepath.Base(path))
}

func TestWriteResult(t *testing.T) {
	color.NoColor = true
	res := sampleResults()[2]

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res, FormatText))
	out := buf.String()
	assert.Contains(t, out, "== whois (basic) on example.com ==")
	assert.Contains(t, out, "registrar: Example Corp")
	assert.Contains(t, out, "name_servers:\n  - NS2.EXAMPLE.COM\n  - NS1.EXAMPLE.COM\n")

	buf.Reset()
	require.NoError(t, WriteResult(&buf, res, FormatJSON))
	assert.Contains(t, buf.String(), `"registrar": "Example Corp"`)

	buf.Reset()
	require.NoError(t, WriteResult(&buf, res, FormatNone))
	assert.Empty(t, buf.String())

	assert.Error(t, WriteResult(&buf, res, "xml"))
}

func TestWriteResultStructured(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, sampleResults()[0], FormatText))
	out := buf.String()
	assert.Contains(t, out, "os_guess: -")
	assert.Contains(t, out, `  - {"port":443,"protocol":"tcp","state":"open","service":"https","version":""}`)
	assert.NotContains(t, out, "lots of text")
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)
	require.NoError(t, r.Intelligence(sampleResults()[0].Parsed))
	out := buf.String()
	assert.Contains(t, out, "open_ports")
	assert.Contains(t, out, "OpenSSH 8.2p1")

	buf.Reset()
	require.NoError(t, r.BatchSummary(core.BatchReport{
		Target:    "example.com",
		Succeeded: 1,
		Failures:  []core.Failure{{Module: "dig", Profile: "any", Reason: "timed out after 30s"}},
	}, 2))
	assert.Contains(t, buf.String(), "timed out after 30s")
}
