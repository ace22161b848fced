package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/r4j3sh-com/reconprog/core"
)

// userProfileTimeout applies to every user-defined scanner profile.
const userProfileTimeout = 300 * time.Second

// ProfileEditor drives the interactive "manage" profile.
type ProfileEditor interface {
	EditProfiles(m *NmapModule) error
}

// NmapModule wraps the nmap port scanner. Besides its built-in profiles it
// carries user-defined profiles persisted through a UserProfileStore.
type NmapModule struct {
	opts     Options
	desc     string
	builtins []core.Profile
	store    *UserProfileStore
	editor   ProfileEditor

	mu   sync.RWMutex
	user map[string]UserProfile
}

// NewNmapModule loads the built-in catalog and merges the user profiles
// found in store. store may be nil.
func NewNmapModule(opts Options, store *UserProfileStore) *NmapModule {
	desc, builtins := loadCatalog("nmap", 0)
	m := &NmapModule{
		opts:     opts,
		desc:     desc,
		builtins: builtins,
		store:    store,
		user:     map[string]UserProfile{},
	}
	for name, up := range store.Load() {
		if _, clash := findIn(builtins, name); clash {
			continue
		}
		m.user[name] = up
	}
	return m
}

// SetEditor installs the editor used by the "manage" profile.
func (m *NmapModule) SetEditor(e ProfileEditor) { m.editor = e }

func (m *NmapModule) Name() string        { return "nmap" }
func (m *NmapModule) Description() string { return m.desc }

// Profiles returns built-ins first, then user profiles sorted by name.
func (m *NmapModule) Profiles() []core.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := copyProfiles(m.builtins)
	return append(out, m.userProfilesLocked()...)
}

// UserProfiles returns only the user-defined profiles, sorted by name.
func (m *NmapModule) UserProfiles() []core.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userProfilesLocked()
}

func (m *NmapModule) userProfilesLocked() []core.Profile {
	out := make([]core.Profile, 0, len(m.user))
	for _, name := range sortedNames(m.user) {
		up := m.user[name]
		out = append(out, core.Profile{
			Name:           name,
			Args:           append([]string(nil), up.Args...),
			Description:    up.Desc,
			Recommendation: up.Recommendation,
			Timeout:        userProfileTimeout,
			UserDefined:    true,
		})
	}
	return out
}

// IsBuiltin reports whether name is a built-in profile.
func (m *NmapModule) IsBuiltin(name string) bool {
	_, ok := findIn(m.builtins, name)
	return ok
}

// SaveProfile persists args under a new or existing user profile name.
func (m *NmapModule) SaveProfile(name string, args []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if err := validProfileName(name); err != nil {
		return err
	}
	if m.IsBuiltin(name) {
		return fmt.Errorf("%w: %s", ErrBuiltinProfile, name)
	}
	if len(args) == 0 {
		return fmt.Errorf("profile %s needs at least one argument", name)
	}
	return m.mutate(func(next map[string]UserProfile) error {
		next[name] = UserProfile{
			Args:           append([]string(nil), args...),
			Desc:           userDesc(args),
			Recommendation: "Custom profile",
		}
		return nil
	})
}

// DeleteProfile removes a user profile.
func (m *NmapModule) DeleteProfile(name string) error {
	return m.mutate(func(next map[string]UserProfile) error {
		if _, ok := next[name]; !ok {
			return fmt.Errorf("%w: %s is not a user profile", core.ErrUnknownProfile, name)
		}
		delete(next, name)
		return nil
	})
}

// UpdateProfile replaces the args of a user profile and optionally renames
// it. Empty newName keeps the name; nil args keep the current args.
func (m *NmapModule) UpdateProfile(name, newName string, args []string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		newName = name
	}
	if err := validProfileName(newName); err != nil {
		return err
	}
	if newName != name && m.IsBuiltin(newName) {
		return fmt.Errorf("%w: %s", ErrBuiltinProfile, newName)
	}
	return m.mutate(func(next map[string]UserProfile) error {
		cur, ok := next[name]
		if !ok {
			return fmt.Errorf("%w: %s is not a user profile", core.ErrUnknownProfile, name)
		}
		if newName != name {
			if _, taken := next[newName]; taken {
				return fmt.Errorf("profile %s already exists", newName)
			}
		}
		if args == nil {
			args = cur.Args
		}
		delete(next, name)
		next[newName] = UserProfile{
			Args:           append([]string(nil), args...),
			Desc:           userDesc(args),
			Recommendation: "Custom profile",
		}
		return nil
	})
}

// mutate applies fn to a copy of the user profiles, persists the copy, and
// only then swaps it in, so memory and file never disagree.
func (m *NmapModule) mutate(fn func(map[string]UserProfile) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]UserProfile, len(m.user)+1)
	for k, v := range m.user {
		next[k] = v
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := m.store.Save(next); err != nil {
		return err
	}
	m.user = next
	return nil
}

// Run executes a preset profile. "custom" needs RunCustom; "manage" hands
// control to the profile editor.
func (m *NmapModule) Run(ctx context.Context, target, profile string) core.ExecutionResult {
	p, ok := core.FindProfile(m, profile)
	if !ok {
		return core.UnknownProfileResult(profile)
	}
	switch profile {
	case core.ProfileManage:
		return m.manage()
	case core.ProfileCustom:
		return core.ExecutionResult{
			Stderr:   "Custom scan cancelled: no arguments supplied.",
			ExitCode: core.ExitFailure,
		}
	}
	return m.exec(ctx, target, p.Args, m.opts.timeout(m.Name(), p))
}

// RunCustom runs nmap with caller-supplied arguments.
func (m *NmapModule) RunCustom(ctx context.Context, target string, args []string) core.ExecutionResult {
	if len(args) == 0 {
		return core.ExecutionResult{
			Stderr:   "Custom scan cancelled: no arguments supplied.",
			ExitCode: core.ExitFailure,
		}
	}
	p, _ := findIn(m.builtins, core.ProfileCustom)
	return m.exec(ctx, target, args, m.opts.timeout(m.Name(), p))
}

func (m *NmapModule) exec(ctx context.Context, target string, args []string, timeout time.Duration) core.ExecutionResult {
	argv := append(append([]string(nil), args...), target)
	return m.opts.runner().Run(ctx, timeout, m.opts.binary(m.Name(), "nmap"), argv...)
}

func (m *NmapModule) manage() core.ExecutionResult {
	if m.editor == nil {
		return core.ExecutionResult{
			Stderr:   "Profile management needs an interactive session.",
			ExitCode: core.ExitFailure,
		}
	}
	if err := m.editor.EditProfiles(m); err != nil {
		return core.ExecutionResult{Stderr: err.Error(), ExitCode: core.ExitFailure}
	}
	return core.ExecutionResult{Stdout: "Profile management completed."}
}

// Parse implements core.Module.
func (m *NmapModule) Parse(profile, stdout string) core.Intelligence {
	return ParseNmap(stdout)
}
