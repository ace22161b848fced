package modules

import (
	"context"

	"github.com/r4j3sh-com/reconprog/core"
)

// DigModule enumerates DNS records with dig.
type DigModule struct {
	opts     Options
	desc     string
	profiles []core.Profile
}

func NewDigModule(opts Options) *DigModule {
	desc, profiles := loadCatalog("dig", 0)
	return &DigModule{opts: opts, desc: desc, profiles: profiles}
}

func (m *DigModule) Name() string             { return "dig" }
func (m *DigModule) Description() string      { return m.desc }
func (m *DigModule) Profiles() []core.Profile { return copyProfiles(m.profiles) }

// Run queries target for the record type of profile: dig <target> <args>.
func (m *DigModule) Run(ctx context.Context, target, profile string) core.ExecutionResult {
	p, ok := findIn(m.profiles, profile)
	if !ok {
		return core.UnknownProfileResult(profile)
	}
	argv := append([]string{target}, p.Args...)
	return m.opts.runner().Run(ctx, m.opts.timeout(m.Name(), p), m.opts.binary(m.Name(), "dig"), argv...)
}

func (m *DigModule) Parse(profile, stdout string) core.Intelligence {
	return ParseDig(stdout)
}
