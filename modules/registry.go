package modules

import "github.com/r4j3sh-com/reconprog/core"

// All builds every recon module in display order. store holds the scanner's
// user profiles and may be nil.
func All(opts Options, store *UserProfileStore) []core.Module {
	return []core.Module{
		NewNmapModule(opts, store),
		NewDigModule(opts),
		NewWhoisModule(opts),
		NewCrtshModule(opts),
	}
}

// NewEngine registers All in a fresh engine.
func NewEngine(opts Options, store *UserProfileStore) *core.Engine {
	return core.NewEngine(All(opts, store)...)
}

// Scanner returns the registered nmap module, which owns the user profiles.
func Scanner(e *core.Engine) (*NmapModule, bool) {
	m, err := e.Lookup("nmap")
	if err != nil {
		return nil, false
	}
	n, ok := m.(*NmapModule)
	return n, ok
}
