package modules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r4j3sh-com/reconprog/core"
)

type call struct {
	timeout time.Duration
	name    string
	args    []string
}

// fakeRunner records invocations and replays a canned result.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	result core.ExecutionResult
}

func (f *fakeRunner) Run(_ context.Context, timeout time.Duration, name string, args ...string) core.ExecutionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{timeout: timeout, name: name, args: append([]string(nil), args...)})
	return f.result
}

func (f *fakeRunner) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestCatalogOrder(t *testing.T) {
	n := NewNmapModule(Options{}, nil)
	assert.Equal(t,
		[]string{"basic", "stealth", "connect", "version", "os", "script", "full", "custom", "manage"},
		core.ProfileNames(n))

	p, ok := core.FindProfile(n, "version")
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, p.Timeout)

	d := NewDigModule(Options{})
	assert.Equal(t, "a", core.ProfileNames(d)[0])
	p, ok = core.FindProfile(d, "mx")
	require.True(t, ok)
	assert.Zero(t, p.Timeout)

	assert.Equal(t, []string{"basic", "verbose", "native"}, core.ProfileNames(NewWhoisModule(Options{})))
	assert.Equal(t, []string{"basic", "verbose"}, core.ProfileNames(NewCrtshModule(Options{})))
}

func TestProfileTimeoutBeatsModuleOverride(t *testing.T) {
	runner := &fakeRunner{}
	cfg := core.DefaultConfig()
	cfg.Modules = map[string]core.ModuleConfig{"nmap": {Timeout: 60}}
	m := NewNmapModule(Options{Runner: runner, Config: cfg}, nil)

	m.Run(context.Background(), "example.com", "full")
	assert.Equal(t, 180*time.Second, runner.last().timeout)

	m.RunCustom(context.Background(), "example.com", []string{"-F"})
	assert.Equal(t, 300*time.Second, runner.last().timeout)
}

func TestProfilesAreCopies(t *testing.T) {
	d := NewDigModule(Options{})
	profiles := d.Profiles()
	profiles[0].Args[0] = "MUTATED"
	p, _ := core.FindProfile(d, "a")
	assert.Equal(t, "A", p.Args[0])
}

func TestRunArgv(t *testing.T) {
	runner := &fakeRunner{}
	cfg := core.DefaultConfig()
	cfg.Modules = map[string]core.ModuleConfig{"dig": {Binary: "/usr/local/bin/dig", Timeout: 7}}
	opts := Options{Runner: runner, Config: cfg}

	NewNmapModule(opts, nil).Run(context.Background(), "example.com", "version")
	assert.Equal(t, call{timeout: 120 * time.Second, name: "nmap", args: []string{"-sS", "-p-", "-sV", "-T4", "example.com"}}, runner.last())

	NewDigModule(opts).Run(context.Background(), "example.com", "mx")
	assert.Equal(t, call{timeout: 7 * time.Second, name: "/usr/local/bin/dig", args: []string{"example.com", "MX", "+short"}}, runner.last())

	NewWhoisModule(opts).Run(context.Background(), "example.com", "verbose")
	assert.Equal(t, call{timeout: 30 * time.Second, name: "whois", args: []string{"--verbose", "example.com"}}, runner.last())

	NewCrtshModule(opts).Run(context.Background(), "example.com", "verbose")
	c := runner.last()
	assert.Equal(t, "curl", c.name)
	assert.Equal(t, "https://crt.sh/?q=%25.example.com&output=json", c.args[len(c.args)-1])
}

func TestRunUnknownProfile(t *testing.T) {
	runner := &fakeRunner{}
	for _, m := range All(Options{Runner: runner}, nil) {
		res := m.Run(context.Background(), "example.com", "nope")
		assert.Equal(t, core.ExitFailure, res.ExitCode, m.Name())
		assert.Equal(t, "Unknown profile: nope", res.Stderr, m.Name())
	}
	assert.Empty(t, runner.calls)
}

func TestRunIsDeterministic(t *testing.T) {
	canned := map[string]string{
		"nmap":  sampleNmap,
		"dig":   "1.2.3.4\n5.6.7.8\n",
		"whois": "Registrar: Example Corp\nName Server: NS1.EXAMPLE.COM\n",
		"crtsh": `[{"name_value":"a.example.com\nb.example.com"}]`,
	}
	for _, m := range All(Options{}, nil) {
		runner := &fakeRunner{result: core.ExecutionResult{Stdout: canned[m.Name()]}}
		var mod core.Module
		switch m.Name() {
		case "nmap":
			mod = NewNmapModule(Options{Runner: runner}, nil)
		case "dig":
			mod = NewDigModule(Options{Runner: runner})
		case "whois":
			mod = NewWhoisModule(Options{Runner: runner})
		case "crtsh":
			mod = NewCrtshModule(Options{Runner: runner})
		}
		profile := core.ProfileNames(mod)[0]
		first := mod.Run(context.Background(), "example.com", profile)
		second := mod.Run(context.Background(), "example.com", profile)
		require.Equal(t, first, second, m.Name())
		assert.Equal(t, mod.Parse(profile, first.Stdout), mod.Parse(profile, second.Stdout), m.Name())
	}
}

func TestCrtshBasicRunReducesJSON(t *testing.T) {
	runner := &fakeRunner{result: core.ExecutionResult{
		Stdout: `[{"name_value":"b.example.com\na.example.com"},{"name_value":"a.example.com"}]`,
	}}
	m := NewCrtshModule(Options{Runner: runner})
	res := m.Run(context.Background(), "example.com", "basic")
	assert.Equal(t, "a.example.com\nb.example.com\n", res.Stdout)

	intel := m.Parse("basic", res.Stdout)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, intel["subdomains"])
	assert.NotContains(t, intel, "note")
}

func TestCrtshBasicRunRejectsNonJSON(t *testing.T) {
	for _, body := range []string{
		"<html>busy</html>",
		"upstream connect error or disconnect/reset before headers. reset reason: overflow\n",
	} {
		runner := &fakeRunner{result: core.ExecutionResult{Stdout: body}}
		m := NewCrtshModule(Options{Runner: runner})
		res := m.Run(context.Background(), "example.com", "basic")
		assert.Equal(t, core.ExitFailure, res.ExitCode, body)
		assert.False(t, res.OK())
		assert.Equal(t, body, res.Stdout)
		assert.NotEmpty(t, res.Stderr)

		intel := m.Parse("basic", res.Stdout)
		assert.Equal(t, "No certificates found or invalid response", intel.Err(), body)
		assert.Equal(t, body, intel["raw_output"])
		assert.Equal(t, 0, intel["count"])
	}
}

func TestCrtshBasicRunEmptyArray(t *testing.T) {
	runner := &fakeRunner{result: core.ExecutionResult{Stdout: "[]"}}
	m := NewCrtshModule(Options{Runner: runner})
	res := m.Run(context.Background(), "example.com", "basic")
	require.True(t, res.OK())
	assert.Equal(t, "No certificates found", m.Parse("basic", res.Stdout).Err())
}

func TestWhoisNative(t *testing.T) {
	m := NewWhoisModule(Options{})
	m.lookup = func(domain string, _ time.Duration) (string, error) {
		return "Registrar: Native Corp\n", nil
	}
	res := m.Run(context.Background(), "example.com", "native")
	require.True(t, res.OK())
	assert.Equal(t, "Native Corp", m.Parse("native", res.Stdout)["registrar"])

	m.lookup = func(string, time.Duration) (string, error) {
		return "", errors.New("whois: connect refused")
	}
	res = m.Run(context.Background(), "example.com", "native")
	assert.Equal(t, core.ExitFailure, res.ExitCode)
	assert.Equal(t, "whois: connect refused", res.Stderr)
}

func TestWhoisNativeTimeout(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Modules = map[string]core.ModuleConfig{"whois": {Timeout: 1}}
	m := NewWhoisModule(Options{Config: cfg})
	release := make(chan struct{})
	defer close(release)
	m.lookup = func(string, time.Duration) (string, error) {
		<-release
		return "", nil
	}
	res := m.Run(context.Background(), "example.com", "native")
	assert.Equal(t, core.ExitTimeout, res.ExitCode)
	assert.Equal(t, "Command timed out after 1 seconds", res.Stderr)
}

func TestNmapCustomAndManage(t *testing.T) {
	runner := &fakeRunner{}
	m := NewNmapModule(Options{Runner: runner}, nil)

	res := m.Run(context.Background(), "example.com", core.ProfileCustom)
	assert.Equal(t, core.ExitFailure, res.ExitCode)
	assert.Empty(t, runner.calls)

	m.RunCustom(context.Background(), "example.com", []string{"-p", "22,80", "-sV"})
	assert.Equal(t, call{timeout: 300 * time.Second, name: "nmap", args: []string{"-p", "22,80", "-sV", "example.com"}}, runner.last())

	res = m.Run(context.Background(), "example.com", core.ProfileManage)
	assert.Equal(t, core.ExitFailure, res.ExitCode)

	m.SetEditor(editorFunc(func(*NmapModule) error { return nil }))
	res = m.Run(context.Background(), "example.com", core.ProfileManage)
	assert.Equal(t, core.ExecutionResult{Stdout: "Profile management completed."}, res)
}

type editorFunc func(*NmapModule) error

func (f editorFunc) EditProfiles(m *NmapModule) error { return f(m) }

func TestScannerLookup(t *testing.T) {
	e := NewEngine(Options{}, nil)
	n, ok := Scanner(e)
	require.True(t, ok)
	assert.Equal(t, "nmap", n.Name())

	_, err := e.Lookup("DIG")
	assert.NoError(t, err)
}

func TestNmapProfileNamesStayOnePathComponent(t *testing.T) {
	m := NewNmapModule(Options{}, NewUserProfileStore(afero.NewMemMapFs(), "/p.json"))
	for _, name := range []string{"../x", "a/b", `a\b`, "..", "web scan"} {
		assert.ErrorIs(t, m.SaveProfile(name, []string{"-F"}), ErrInvalidProfileName, name)
	}
	require.NoError(t, m.SaveProfile("web-1.2_x", []string{"-F"}))
	assert.ErrorIs(t, m.UpdateProfile("web-1.2_x", "../../etc", nil), ErrInvalidProfileName)
	require.Len(t, m.UserProfiles(), 1)
	assert.Equal(t, "web-1.2_x", m.UserProfiles()[0].Name)
}

func TestUserProfileStoreLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.json", []byte(`{
		"quick": {"args": ["-F"]},
		"web": {"args": ["-p", "80,443"], "desc": "Web ports", "recommendation": "HTTP"},
		"broken": {"desc": "no args"}
	}`), 0644))

	got := NewUserProfileStore(fs, "/p.json").Load()
	assert.Equal(t, map[string]UserProfile{
		"quick": {Args: []string{"-F"}, Desc: "User-defined: -F", Recommendation: "Custom profile"},
		"web":   {Args: []string{"-p", "80,443"}, Desc: "Web ports", Recommendation: "HTTP"},
	}, got)
}

func TestUserProfileStoreMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.json", []byte(`{not json`), 0644))
	assert.Empty(t, NewUserProfileStore(fs, "/p.json").Load())
	assert.Empty(t, NewUserProfileStore(fs, "/missing.json").Load())
}

func TestNmapUserProfiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.json", []byte(`{
		"basic": {"args": ["-sn"]},
		"zeta": {"args": ["-F"]}
	}`), 0644))
	store := NewUserProfileStore(fs, "/p.json")
	m := NewNmapModule(Options{}, store)

	// Built-in names win over the file.
	p, _ := core.FindProfile(m, "basic")
	assert.False(t, p.UserDefined)
	assert.Equal(t, []string{"zeta"}, core.ProfileNames(m)[9:])

	err := m.SaveProfile("basic", []string{"-sn"})
	assert.ErrorIs(t, err, ErrBuiltinProfile)
	assert.Error(t, m.SaveProfile("", []string{"-sn"}))
	assert.Error(t, m.SaveProfile("empty", nil))

	require.NoError(t, m.SaveProfile("alpha", []string{"-p", "22", "-sV"}))
	assert.Equal(t, []string{"alpha", "zeta"}, core.ProfileNames(m)[9:])
	p, ok := core.FindProfile(m, "alpha")
	require.True(t, ok)
	assert.True(t, p.UserDefined)
	assert.Equal(t, 300*time.Second, p.Timeout)
	assert.Equal(t, "User-defined: -p 22 -sV", p.Description)

	// A fresh module reads back what was saved.
	reloaded := NewNmapModule(Options{}, store)
	assert.Equal(t, []string{"alpha", "zeta"}, core.ProfileNames(reloaded)[9:])

	require.NoError(t, m.UpdateProfile("alpha", "beta", nil))
	p, ok = core.FindProfile(m, "beta")
	require.True(t, ok)
	assert.Equal(t, []string{"-p", "22", "-sV"}, p.Args)
	_, ok = core.FindProfile(m, "alpha")
	assert.False(t, ok)

	assert.ErrorIs(t, m.UpdateProfile("beta", "full", nil), ErrBuiltinProfile)
	assert.Error(t, m.UpdateProfile("beta", "zeta", nil))

	require.NoError(t, m.DeleteProfile("zeta"))
	assert.ErrorIs(t, m.DeleteProfile("zeta"), core.ErrUnknownProfile)
	assert.Equal(t, map[string]UserProfile{
		"beta": {Args: []string{"-p", "22", "-sV"}, Desc: "User-defined: -p 22 -sV", Recommendation: "Custom profile"},
	}, store.Load())
}

func TestNmapSaveWithoutStore(t *testing.T) {
	m := NewNmapModule(Options{}, nil)
	assert.Error(t, m.SaveProfile("x", []string{"-F"}))
	assert.Empty(t, m.UserProfiles())
}
