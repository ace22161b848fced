package modules

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"

	"github.com/r4j3sh-com/reconprog/core"
)

// PortRecord is one port-state line of scanner output.
type PortRecord struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service"`
	Version  string `json:"version"`
}

var (
	portLineRe   = regexp.MustCompile(`^(\d+)/(tcp|udp)\s+([\w|]+)\s+(\S+)(?:\s+(.*))?$`)
	osGuessRe    = regexp.MustCompile(`Aggressive OS guesses:\s*(.+)`)
	scriptLineRe = regexp.MustCompile(`(?i)^\|_?[ \t]*([a-z0-9-]+):[ \t]*(.+)`)
)

// ParseNmap extracts ports, the OS guess, and NSE script output from
// nmap's normal output. Unrecognised output degrades to a warning with the
// raw text attached.
func ParseNmap(stdout string) core.Intelligence {
	if stdout == "" {
		return core.Intelligence{"error": "No output produced."}
	}

	ports := []PortRecord{}
	var osGuess interface{}
	scripts := map[string]string{}

	var blocks []string
	var block []string
	inBlock := false
	flush := func() {
		if len(block) > 0 {
			blocks = append(blocks, strings.Join(block, "\n"))
		}
		block = nil
		inBlock = false
	}

	for _, line := range strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n") {
		if m := portLineRe.FindStringSubmatch(line); m != nil {
			port, err := strconv.Atoi(m[1])
			if err == nil {
				ports = append(ports, PortRecord{
					Port:     port,
					Protocol: m[2],
					State:    m[3],
					Service:  m[4],
					Version:  strings.TrimSpace(m[5]),
				})
				continue
			}
		}
		if m := osGuessRe.FindStringSubmatch(line); m != nil {
			osGuess = strings.TrimSpace(m[1])
			continue
		}
		if m := scriptLineRe.FindStringSubmatch(line); m != nil {
			scripts[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
			continue
		}
		if strings.Contains(line, "NSE:") || strings.Contains(line, "Script:") {
			flush()
			inBlock = true
			block = []string{line}
			continue
		}
		if inBlock {
			if strings.TrimSpace(line) == "" {
				flush()
			} else {
				block = append(block, line)
			}
		}
	}
	flush()

	scriptResults := map[string]interface{}{}
	for k, v := range scripts {
		scriptResults[k] = v
	}
	if len(scriptResults) == 0 && len(blocks) > 0 {
		scriptResults["_raw"] = strings.Join(blocks, "\n\n")
	}

	intel := core.Intelligence{
		"open_ports":     ports,
		"os_guess":       osGuess,
		"script_results": scriptResults,
		"raw_output":     stdout,
	}
	if techs := fingerprintScripts(scripts); len(techs) > 0 {
		intel["technologies"] = techs
	}
	if len(ports) == 0 && osGuess == nil && len(scriptResults) == 0 {
		intel["warning"] = "No structured data could be parsed. Raw output provided."
	}
	return intel
}

var (
	wappalyzerOnce   sync.Once
	wappalyzerClient *wappalyzer.Wappalyze
)

func wappalyzerInstance() *wappalyzer.Wappalyze {
	wappalyzerOnce.Do(func() {
		client, err := wappalyzer.New()
		if err != nil {
			core.Logger.WithError(err).Debug("wappalyzer fingerprints unavailable")
			return
		}
		wappalyzerClient = client
	})
	return wappalyzerClient
}

// fingerprintScripts feeds HTTP-related NSE output to wappalyzer as if it
// were a response, returning the detected technologies sorted.
func fingerprintScripts(scripts map[string]string) []string {
	server := scripts["http-server-header"]
	generator := scripts["http-generator"]
	title := scripts["http-title"]
	if server == "" && generator == "" && title == "" {
		return nil
	}
	client := wappalyzerInstance()
	if client == nil {
		return nil
	}

	headers := map[string][]string{}
	if server != "" {
		headers["Server"] = []string{server}
	}
	var body strings.Builder
	body.WriteString("<html><head>")
	if title != "" {
		body.WriteString("<title>" + html.EscapeString(title) + "</title>")
	}
	if generator != "" {
		body.WriteString(`<meta name="generator" content="` + html.EscapeString(generator) + `">`)
	}
	body.WriteString("</head><body></body></html>")

	found := client.Fingerprint(headers, []byte(body.String()))
	techs := make([]string, 0, len(found))
	for name := range found {
		techs = append(techs, name)
	}
	sort.Strings(techs)
	return techs
}
