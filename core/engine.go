package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownModule is returned when a module name is not registered.
	ErrUnknownModule = errors.New("module not found")
	// ErrUnknownProfile is returned when a module has no profile with the given name.
	ErrUnknownProfile = errors.New("profile not found")
)

// Engine is the closed registry of recon modules.
type Engine struct {
	order   []Module
	modules map[string]Module
}

// NewEngine initializes an Engine instance with the given modules.
func NewEngine(mods ...Module) *Engine {
	e := &Engine{
		modules: make(map[string]Module),
	}
	for _, m := range mods {
		e.RegisterModule(m)
	}
	return e
}

// RegisterModule adds a module to the engine. Names are case-insensitive;
// registering the same name twice replaces the earlier module.
func (e *Engine) RegisterModule(m Module) {
	key := strings.ToLower(m.Name())
	if _, exists := e.modules[key]; exists {
		for i, old := range e.order {
			if strings.ToLower(old.Name()) == key {
				e.order[i] = m
			}
		}
	} else {
		e.order = append(e.order, m)
	}
	e.modules[key] = m
}

// Modules returns the registered modules in registration order.
func (e *Engine) Modules() []Module {
	out := make([]Module, len(e.order))
	copy(out, e.order)
	return out
}

// Lookup finds a module by name, ignoring case.
func (e *Engine) Lookup(name string) (Module, error) {
	mod, exists := e.modules[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return mod, nil
}

// Profile resolves a module and one of its profiles.
func (e *Engine) Profile(module, profile string) (Module, Profile, error) {
	mod, err := e.Lookup(module)
	if err != nil {
		return nil, Profile{}, err
	}
	p, ok := FindProfile(mod, profile)
	if !ok {
		return mod, Profile{}, fmt.Errorf("%w: %s in module %s", ErrUnknownProfile, profile, mod.Name())
	}
	return mod, p, nil
}

// FindProfile looks a profile up in the module's merged catalog.
func FindProfile(m Module, name string) (Profile, bool) {
	for _, p := range m.Profiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// ProfileNames lists the profile names of a module in catalog order.
func ProfileNames(m Module) []string {
	profiles := m.Profiles()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}
