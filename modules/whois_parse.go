package modules

import (
	"regexp"
	"sort"
	"strings"

	whoisparser "github.com/likexian/whois-parser"

	"github.com/r4j3sh-com/reconprog/core"
)

type whoisField struct {
	key      string
	patterns []*regexp.Regexp
}

func fieldPatterns(labels ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(labels))
	for i, label := range labels {
		out[i] = regexp.MustCompile(`(?im)` + regexp.QuoteMeta(label) + `:[ \t]*(.+)$`)
	}
	return out
}

// whoisFields is evaluated in order; within a field the first label that
// matches anywhere wins.
var whoisFields = []whoisField{
	{"registrar", fieldPatterns("Registrar", "Sponsoring Registrar")},
	{"creation_date", fieldPatterns("Creation Date", "Created on", "Registered on")},
	{"expiry_date", fieldPatterns("Registry Expiry Date", "Expires on", "Expiration Date")},
	{"updated_date", fieldPatterns("Updated Date", "Last Updated on")},
	{"name_servers", fieldPatterns("Name Server", "Nameserver")},
	{"registrant", fieldPatterns("Registrant", "Registrant Name")},
	{"admin", fieldPatterns("Administrative Contact", "Admin Email")},
	{"tech", fieldPatterns("Technical Contact", "Tech Email")},
}

// ParseWhois extracts registration fields. Unmatched fields stay nil and the
// raw text is always kept.
func ParseWhois(stdout string) core.Intelligence {
	intel := core.Intelligence{
		"raw":           stdout,
		"registrar":     nil,
		"creation_date": nil,
		"expiry_date":   nil,
		"updated_date":  nil,
		"name_servers":  []string{},
		"registrant":    nil,
		"admin":         nil,
		"tech":          nil,
	}

	for _, f := range whoisFields {
		for _, re := range f.patterns {
			values := matchValues(re, stdout)
			if len(values) == 0 {
				continue
			}
			if f.key == "name_servers" {
				intel[f.key] = uniqueSorted(values)
			} else {
				intel[f.key] = values[0]
			}
			break
		}
	}

	if reg := registryInfo(stdout); reg != nil {
		intel["registry"] = reg
	}
	return intel
}

func matchValues(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// registryInfo adds the fields only a format-aware parser can recover.
func registryInfo(text string) map[string]interface{} {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	info, err := whoisparser.Parse(text)
	if err != nil || info.Domain == nil {
		return nil
	}
	reg := map[string]interface{}{
		"domain":       info.Domain.Domain,
		"status":       append([]string{}, info.Domain.Status...),
		"dnssec":       info.Domain.DNSSec,
		"whois_server": info.Domain.WhoisServer,
	}
	if info.Registrant != nil {
		reg["registrant_organization"] = info.Registrant.Organization
		reg["registrant_country"] = info.Registrant.Country
	}
	return reg
}
