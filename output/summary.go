package output

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/r4j3sh-com/reconprog/core"
)

// Session is the exported form of one recon session.
type Session struct {
	Target      string            `json:"target"`
	GeneratedAt time.Time         `json:"generated_at"`
	Results     []core.TaskResult `json:"results"`
	Failures    []core.Failure    `json:"failures,omitempty"`
}

// NewSession collects results for export.
func NewSession(target string, results []core.TaskResult, failures []core.Failure) Session {
	return Session{Target: target, GeneratedAt: time.Now(), Results: results, Failures: failures}
}

// Summary aggregates the headline findings across a session.
type Summary struct {
	OpenPorts    []int
	Technologies []string
	Subdomains   []string
	NameServers  []string
	Registrar    string
	OSGuess      string
}

// headline picks the summary fields out of parsed intelligence. Fresh
// results hold typed values and cached ones hold decoded JSON, so both go
// through a JSON round trip.
type headline struct {
	OpenPorts []struct {
		Port  int    `json:"port"`
		State string `json:"state"`
	} `json:"open_ports"`
	Technologies []string `json:"technologies"`
	Subdomains   []string `json:"subdomains"`
	NameServers  []string `json:"name_servers"`
	Registrar    *string  `json:"registrar"`
	OSGuess      *string  `json:"os_guess"`
}

// Summarize builds the headline view of results.
func Summarize(results []core.TaskResult) Summary {
	ports := map[int]bool{}
	techs := map[string]bool{}
	subs := map[string]bool{}
	nss := map[string]bool{}
	var s Summary

	for _, r := range results {
		if r.Parsed == nil {
			continue
		}
		data, err := json.Marshal(r.Parsed)
		if err != nil {
			continue
		}
		var h headline
		if err := json.Unmarshal(data, &h); err != nil {
			continue
		}
		for _, p := range h.OpenPorts {
			if p.State == "open" {
				ports[p.Port] = true
			}
		}
		for _, t := range h.Technologies {
			techs[t] = true
		}
		for _, d := range h.Subdomains {
			subs[d] = true
		}
		for _, ns := range h.NameServers {
			nss[ns] = true
		}
		if h.Registrar != nil && s.Registrar == "" {
			s.Registrar = *h.Registrar
		}
		if h.OSGuess != nil && s.OSGuess == "" {
			s.OSGuess = *h.OSGuess
		}
	}

	for p := range ports {
		s.OpenPorts = append(s.OpenPorts, p)
	}
	sort.Ints(s.OpenPorts)
	s.Technologies = sortedKeys(techs)
	s.Subdomains = sortedKeys(subs)
	s.NameServers = sortedKeys(nss)
	return s
}

// Empty reports whether nothing worth summarising was found.
func (s Summary) Empty() bool {
	return len(s.OpenPorts) == 0 && len(s.Technologies) == 0 && len(s.Subdomains) == 0 &&
		len(s.NameServers) == 0 && s.Registrar == "" && s.OSGuess == ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// detailKeys lists the parsed keys shown in reports, sorted, without raw
// text blobs and internal markers.
func detailKeys(parsed core.Intelligence) []string {
	keys := make([]string, 0, len(parsed))
	for k := range parsed {
		switch k {
		case "raw", "raw_output", "raw_json", "_cached":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
