package modules

import (
	"context"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/r4j3sh-com/reconprog/core"
)

// CrtshModule discovers subdomains from certificate transparency logs by
// querying crt.sh with curl.
type CrtshModule struct {
	opts     Options
	desc     string
	profiles []core.Profile
}

func NewCrtshModule(opts Options) *CrtshModule {
	desc, profiles := loadCatalog("crtsh", 0)
	return &CrtshModule{opts: opts, desc: desc, profiles: profiles}
}

func (m *CrtshModule) Name() string             { return "crtsh" }
func (m *CrtshModule) Description() string      { return m.desc }
func (m *CrtshModule) Profiles() []core.Profile { return copyProfiles(m.profiles) }

// Run fetches the CT log entries for *.target. For "basic" a JSON reply is
// reduced to its sorted unique names; anything else is passed through for
// the parser's fallbacks.
func (m *CrtshModule) Run(ctx context.Context, target, profile string) core.ExecutionResult {
	p, ok := findIn(m.profiles, profile)
	if !ok {
		return core.UnknownProfileResult(profile)
	}
	argv, _ := substituteTarget(p.Args, target)
	res := m.opts.runner().Run(ctx, m.opts.timeout(m.Name(), p), m.opts.binary(m.Name(), "curl"), argv...)
	if res.OK() && profile == "basic" {
		names, ok := certNames(res.Stdout)
		if !ok {
			// stdout stays as is so the parser can attach it as raw_output.
			res.Stderr = "crt.sh returned a response that is not a JSON certificate list"
			res.ExitCode = core.ExitFailure
			return res
		}
		if len(names) > 0 {
			sort.Strings(names)
			res.Stdout = strings.Join(names, "\n") + "\n"
		}
	}
	return res
}

func (m *CrtshModule) Parse(profile, stdout string) core.Intelligence {
	return ParseCrtsh(profile, stdout)
}

// certNames collects the unique names of every certificate record in a
// crt.sh JSON array, in first-seen order. ok is false when body is not a
// JSON array.
func certNames(body string) ([]string, bool) {
	body = strings.TrimSpace(body)
	if !gjson.Valid(body) {
		return nil, false
	}
	doc := gjson.Parse(body)
	if !doc.IsArray() {
		return nil, false
	}
	seen := map[string]bool{}
	names := []string{}
	doc.ForEach(func(_, entry gjson.Result) bool {
		for _, name := range strings.Split(entry.Get("name_value").String(), "\n") {
			name = strings.TrimSpace(name)
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return true
	})
	return names, true
}
