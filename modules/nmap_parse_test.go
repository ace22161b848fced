package modules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNmap = `Starting Nmap 7.94 ( https://nmap.org ) at 2024-05-01 10:00 UTC
Nmap scan report for example.com (93.184.216.34)
Host is up (0.010s latency).
PORT    STATE         SERVICE VERSION
22/tcp  open          ssh     OpenSSH 8.2p1
80/tcp  open          http
161/udp open|filtered snmp
| http-title: Example Domain
|_http-server-header: ECS (dcb/7F84)
Aggressive OS guesses: Linux 5.0 - 5.4 (95%), Linux 4.15 (90%)
Nmap done: 1 IP address (1 host up) scanned in 2.10 seconds
`

func TestParseNmapPortLine(t *testing.T) {
	intel := ParseNmap("22/tcp open ssh OpenSSH 8.2p1")
	ports, ok := intel["open_ports"].([]PortRecord)
	require.True(t, ok)
	require.Len(t, ports, 1)
	assert.Equal(t, PortRecord{Port: 22, Protocol: "tcp", State: "open", Service: "ssh", Version: "OpenSSH 8.2p1"}, ports[0])
	assert.NotContains(t, intel, "warning")
}

func TestParseNmapFullOutput(t *testing.T) {
	intel := ParseNmap(sampleNmap)

	ports := intel["open_ports"].([]PortRecord)
	require.Len(t, ports, 3)
	assert.Equal(t, 80, ports[1].Port)
	assert.Equal(t, "", ports[1].Version)
	assert.Equal(t, "open|filtered", ports[2].State)
	assert.Equal(t, "udp", ports[2].Protocol)

	assert.Equal(t, "Linux 5.0 - 5.4 (95%), Linux 4.15 (90%)", intel["os_guess"])

	scripts := intel["script_results"].(map[string]interface{})
	assert.Equal(t, "Example Domain", scripts["http-title"])
	assert.Equal(t, "ECS (dcb/7F84)", scripts["http-server-header"])
	assert.NotContains(t, scripts, "_raw")
	assert.Equal(t, sampleNmap, intel["raw_output"])
}

func TestParseNmapRawScriptBlock(t *testing.T) {
	out := strings.Join([]string{
		"NSE: Script scanning 10.0.0.1.",
		"Initiating NSE at 10:00",
		"",
		"Nmap done",
	}, "\n")
	intel := ParseNmap(out)
	scripts := intel["script_results"].(map[string]interface{})
	assert.Equal(t, "NSE: Script scanning 10.0.0.1.\nInitiating NSE at 10:00", scripts["_raw"])
	assert.NotContains(t, intel, "warning")
}

func TestParseNmapUnstructured(t *testing.T) {
	intel := ParseNmap("Note: Host seems down.\n")
	assert.Equal(t, "No structured data could be parsed. Raw output provided.", intel["warning"])
	assert.Nil(t, intel["os_guess"])
	assert.Empty(t, intel["open_ports"])
	assert.Equal(t, "Note: Host seems down.\n", intel["raw_output"])
}

func TestParseNmapEmpty(t *testing.T) {
	assert.Equal(t, "No output produced.", ParseNmap("").Err())
}

func TestParseNmapTechnologies(t *testing.T) {
	intel := ParseNmap("80/tcp open http nginx 1.18.0\n|_http-server-header: nginx/1.18.0\n")
	techs, ok := intel["technologies"].([]string)
	require.True(t, ok)
	found := false
	for _, tech := range techs {
		if strings.HasPrefix(tech, "Nginx") {
			found = true
		}
	}
	assert.True(t, found, "technologies: %v", techs)
}

func TestLookupFlagHelp(t *testing.T) {
	h, ok := LookupFlagHelp("-T4")
	require.True(t, ok)
	assert.Equal(t, "-T0..-T5", h.Flag)

	h, ok = LookupFlagHelp(" -sV ")
	require.True(t, ok)
	assert.Equal(t, "Service version detection", h.Desc)

	_, ok = LookupFlagHelp("-T9")
	assert.False(t, ok)
}
