package modules

import (
	"context"
	"strings"
	"time"

	"github.com/likexian/whois"

	"github.com/r4j3sh-com/reconprog/core"
)

// profileNative queries registries in-process instead of via the binary.
const profileNative = "native"

// WhoisModule looks up domain registration data.
type WhoisModule struct {
	opts     Options
	desc     string
	profiles []core.Profile

	// lookup is the in-process client used by the native profile.
	lookup func(domain string, timeout time.Duration) (string, error)
}

func NewWhoisModule(opts Options) *WhoisModule {
	desc, profiles := loadCatalog("whois", 0)
	return &WhoisModule{opts: opts, desc: desc, profiles: profiles, lookup: nativeWhois}
}

func (m *WhoisModule) Name() string             { return "whois" }
func (m *WhoisModule) Description() string      { return m.desc }
func (m *WhoisModule) Profiles() []core.Profile { return copyProfiles(m.profiles) }

func (m *WhoisModule) Run(ctx context.Context, target, profile string) core.ExecutionResult {
	p, ok := findIn(m.profiles, profile)
	if !ok {
		return core.UnknownProfileResult(profile)
	}
	timeout := m.opts.timeout(m.Name(), p)
	if profile == profileNative {
		return m.runNative(ctx, target, timeout)
	}
	argv := append(append([]string(nil), p.Args...), target)
	return m.opts.runner().Run(ctx, timeout, m.opts.binary(m.Name(), "whois"), argv...)
}

func (m *WhoisModule) runNative(ctx context.Context, target string, timeout time.Duration) core.ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		text, err := m.lookup(target, timeout)
		done <- reply{text, err}
	}()

	select {
	case <-ctx.Done():
		return core.TimeoutResult(timeout)
	case r := <-done:
		if r.err != nil {
			return core.ExecutionResult{Stderr: r.err.Error(), ExitCode: core.ExitFailure}
		}
		return core.ExecutionResult{Stdout: r.text}
	}
}

func nativeWhois(domain string, timeout time.Duration) (string, error) {
	return whois.NewClient().SetTimeout(timeout).Whois(strings.TrimSpace(domain))
}

func (m *WhoisModule) Parse(profile, stdout string) core.Intelligence {
	return ParseWhois(stdout)
}
