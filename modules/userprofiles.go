package modules

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrBuiltinProfile is returned when a user profile would shadow a built-in.
var ErrBuiltinProfile = errors.New("profile name conflicts with a built-in profile")

// ErrInvalidProfileName is returned for names that are not a single safe
// path component.
var ErrInvalidProfileName = errors.New("profile names may only use letters, digits, '.', '_' and '-'")

var profileNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func validProfileName(name string) error {
	if !profileNameRe.MatchString(name) || strings.Trim(name, ".") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidProfileName, name)
	}
	return nil
}

// UserProfile is one persisted user-defined argument preset.
type UserProfile struct {
	Args           []string `json:"args"`
	Desc           string   `json:"desc"`
	Recommendation string   `json:"recommendation"`
}

// UserProfileStore reads and rewrites the user profile file.
type UserProfileStore struct {
	fs   afero.Fs
	path string
}

// NewUserProfileStore creates a store for path on fs. A nil fs means the OS
// filesystem.
func NewUserProfileStore(fs afero.Fs, path string) *UserProfileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &UserProfileStore{fs: fs, path: path}
}

// Load returns the persisted profiles. A missing or malformed file yields an
// empty set; entries without args are skipped.
func (s *UserProfileStore) Load() map[string]UserProfile {
	out := map[string]UserProfile{}
	if s == nil || s.path == "" {
		return out
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return out
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	for name, msg := range raw {
		var p struct {
			Args           *[]string `json:"args"`
			Desc           string    `json:"desc"`
			Recommendation string    `json:"recommendation"`
		}
		if err := json.Unmarshal(msg, &p); err != nil || p.Args == nil {
			continue
		}
		up := UserProfile{Args: *p.Args, Desc: p.Desc, Recommendation: p.Recommendation}
		if up.Desc == "" {
			up.Desc = userDesc(up.Args)
		}
		if up.Recommendation == "" {
			up.Recommendation = "Custom profile"
		}
		out[name] = up
	}
	return out
}

// Save rewrites the whole file with profiles.
func (s *UserProfileStore) Save(profiles map[string]UserProfile) error {
	if s == nil || s.path == "" {
		return fmt.Errorf("no user profile file configured")
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user profiles: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save user profiles: %w", err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		s.fs.Remove(name)
		return fmt.Errorf("save user profiles: %w", errors.Join(werr, cerr))
	}
	if err := s.fs.Rename(name, s.path); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("save user profiles: %w", err)
	}
	return nil
}

func userDesc(args []string) string {
	return "User-defined: " + strings.Join(args, " ")
}

func sortedNames(profiles map[string]UserProfile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
