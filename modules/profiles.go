package modules

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/r4j3sh-com/reconprog/core"
)

//go:embed profiles/*.yaml
var profileFiles embed.FS

// catalogFile is the layout of profiles/<module>.yaml.
type catalogFile struct {
	Description string        `yaml:"description"`
	Profiles    []profileSpec `yaml:"profiles"`
}

type profileSpec struct {
	Name           string   `yaml:"name"`
	Args           []string `yaml:"args"`
	Desc           string   `yaml:"desc"`
	Recommendation string   `yaml:"recommendation"`
	Timeout        int      `yaml:"timeout"`
}

// loadCatalog decodes the embedded built-in catalog of a module. Profiles
// without a timeout get def.
func loadCatalog(module string, def time.Duration) (string, []core.Profile) {
	data, err := profileFiles.ReadFile("profiles/" + module + ".yaml")
	if err != nil {
		panic(fmt.Sprintf("modules: missing embedded catalog for %s: %v", module, err))
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		panic(fmt.Sprintf("modules: bad embedded catalog for %s: %v", module, err))
	}

	seen := make(map[string]bool, len(file.Profiles))
	profiles := make([]core.Profile, 0, len(file.Profiles))
	for _, entry := range file.Profiles {
		if entry.Name == "" || seen[entry.Name] {
			panic(fmt.Sprintf("modules: empty or duplicate profile %q in %s catalog", entry.Name, module))
		}
		seen[entry.Name] = true
		timeout := def
		if entry.Timeout > 0 {
			timeout = time.Duration(entry.Timeout) * time.Second
		}
		profiles = append(profiles, core.Profile{
			Name:           entry.Name,
			Args:           append([]string(nil), entry.Args...),
			Description:    entry.Desc,
			Recommendation: entry.Recommendation,
			Timeout:        timeout,
		})
	}
	return file.Description, profiles
}

// findIn returns the profile with the given name from a slice.
func findIn(profiles []core.Profile, name string) (core.Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return core.Profile{}, false
}

// copyProfiles returns a copy that callers may not use to mutate the catalog.
func copyProfiles(profiles []core.Profile) []core.Profile {
	out := make([]core.Profile, len(profiles))
	for i, p := range profiles {
		p.Args = append([]string(nil), p.Args...)
		out[i] = p
	}
	return out
}

// substituteTarget replaces {target} placeholders in args.
func substituteTarget(args []string, target string) ([]string, bool) {
	out := make([]string, len(args))
	replaced := false
	for i, a := range args {
		if strings.Contains(a, "{target}") {
			a = strings.ReplaceAll(a, "{target}", target)
			replaced = true
		}
		out[i] = a
	}
	return out, replaced
}

// Options configures module construction.
type Options struct {
	// Runner executes external tools; defaults to core.ExecRunner.
	Runner core.CommandRunner
	// Config supplies per-module binary and timeout overrides.
	Config *core.Config
}

func (o Options) runner() core.CommandRunner {
	if o.Runner == nil {
		return core.ExecRunner{}
	}
	return o.Runner
}

// binary returns the configured binary for a module, or def.
func (o Options) binary(module, def string) string {
	if o.Config != nil {
		if b := o.Config.Module(module).Binary; b != "" {
			return b
		}
	}
	return def
}

// timeout resolves the effective timeout of a profile.
func (o Options) timeout(module string, p core.Profile) time.Duration {
	return core.ResolveTimeout(o.Config, module, p)
}
