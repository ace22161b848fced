package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/afero"

	"github.com/r4j3sh-com/reconprog/core"
)

// WriteJSONReport exports the whole session.
func WriteJSONReport(fs afero.Fs, session Session, path string) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(fs, path, data)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SaveParsed writes the parsed intelligence of one result to dir as
// <module>_<target>_<profile>_<timestamp>.json and returns the path.
func SaveParsed(fs afero.Fs, dir string, res core.TaskResult) (string, error) {
	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	name := fmt.Sprintf("%s_%s_%s_%s.json",
		unsafeName.ReplaceAllString(res.Module, "_"),
		unsafeName.ReplaceAllString(res.Target, "_"),
		unsafeName.ReplaceAllString(res.Profile, "_"),
		ts.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(res.Parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode parsed output: %w", err)
	}
	if err := writeFile(fs, path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(fs afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return afero.WriteFile(fs, path, data, 0644)
}
