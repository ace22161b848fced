package modules

import "strings"

// FlagHelp documents one commonly used nmap flag.
type FlagHelp struct {
	Flag  string
	Desc  string
	Use   string
	Avoid string
}

// NmapFlagHelp lists the flags shown when building custom arguments.
var NmapFlagHelp = []FlagHelp{
	{"-sS", "SYN stealth scan (half-open)",
		"Fast, less likely to be logged; default when running as root.",
		"Requires root. May be detected by modern IDS. Not for full connect tracking."},
	{"-sT", "TCP connect scan (full handshake)",
		"When you don't have root privileges. More reliable but slower.",
		"Noisier, logged by services. Not stealthy."},
	{"-sU", "UDP scan",
		"Discover UDP services (DNS, SNMP, DHCP).",
		"Very slow; many false positives due to rate limiting."},
	{"-sV", "Service version detection",
		"Identify exact service versions (e.g., Apache 2.4.7).",
		"Adds significant time; may trigger intrusion detection."},
	{"-O", "OS fingerprinting",
		"Guess target operating system.",
		"Not always accurate; can be detected and spoofed."},
	{"-sC", "Run default NSE scripts",
		"Get additional info (banners, vulnerabilities, etc.).",
		"Some scripts are intrusive; may crash services."},
	{"-p", "Port specification (e.g., -p 22,80 or -p 1-1000 or -p-)",
		"Limit scan to specific ports. -p- scans all 65535 ports.",
		"Scanning all ports is slow; use targeted ranges for speed."},
	{"-T0..-T5", "Timing templates (T0=paranoid, T3=normal, T4=aggressive, T5=insane)",
		"T4 is good for fast LAN scans; T3 for WAN.",
		"T5 may drop packets or be detected; T0/T1 are extremely slow."},
	{"-v", "Verbose output",
		"See more details during scan.",
		"None; always useful."},
	{"--script", "Run specific NSE script(s) (e.g., --script vuln, --script http-title)",
		"Targeted tests (vulnerability scanning, enumeration).",
		"Some scripts are invasive; read descriptions before running."},
	{"-Pn", "Skip host discovery (treat all hosts as up)",
		"When firewall blocks ping probes; scan IPs that might be down.",
		"Wastes time on dead hosts if you know they're up."},
	{"-A", "Aggressive scan (OS, version, script, traceroute)",
		"Quick overview with maximum info.",
		"Very noisy; combines -O, -sV, -sC, --traceroute."},
}

// LookupFlagHelp finds the help entry for flag. Timing flags -T0 to -T5
// share one entry.
func LookupFlagHelp(flag string) (FlagHelp, bool) {
	flag = strings.TrimSpace(flag)
	if len(flag) == 3 && strings.HasPrefix(flag, "-T") && flag[2] >= '0' && flag[2] <= '5' {
		flag = "-T0..-T5"
	}
	for _, h := range NmapFlagHelp {
		if h.Flag == flag {
			return h, true
		}
	}
	return FlagHelp{}, false
}
