package modules

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/r4j3sh-com/reconprog/core"
)

// TypedRecord is a resource record recognised in full answer output.
type TypedRecord struct {
	Name  string `json:"name"`
	TTL   uint32 `json:"ttl"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ParseDig keeps every non-blank, non-comment line as a record. Lines that
// are complete resource records additionally appear in typed_records.
func ParseDig(stdout string) core.Intelligence {
	records := []string{}
	var typed []TypedRecord
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		records = append(records, line)
		if rec, ok := parseRR(line); ok {
			typed = append(typed, rec)
		}
	}

	intel := core.Intelligence{"records": records, "count": len(records)}
	if len(typed) > 0 {
		intel["typed_records"] = typed
	}
	return intel
}

func parseRR(line string) (TypedRecord, bool) {
	rr, err := dns.NewRR(line)
	if err != nil || rr == nil {
		return TypedRecord{}, false
	}
	hdr := rr.Header()
	value := strings.TrimPrefix(rr.String(), hdr.String())
	return TypedRecord{
		Name:  hdr.Name,
		TTL:   hdr.Ttl,
		Type:  dns.TypeToString[hdr.Rrtype],
		Value: strings.TrimSpace(value),
	}, true
}
