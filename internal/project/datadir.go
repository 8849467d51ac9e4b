package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DetectDataRoot locates the Foundry user data directory by searching for
// the Config/options.json file, walking upward from start, and reading the
// dataPath setting from it. Stored path references are relative to
// <dataPath>/Data.
func DetectDataRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for d := abs; ; d = filepath.Dir(d) {
		options := filepath.Join(d, "Config", "options.json")
		if info, err := os.Stat(options); err == nil && !info.IsDir() {
			return dataRootFromOptions(options)
		}
		if d == filepath.Dir(d) {
			return "", fmt.Errorf("%s: no user data directory found", start)
		}
	}
}

func dataRootFromOptions(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var options struct {
		DataPath string `json:"dataPath"`
	}
	if err := json.Unmarshal(data, &options); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if options.DataPath == "" {
		return "", fmt.Errorf("%s: no dataPath setting", path)
	}

	return filepath.Join(options.DataPath, "Data"), nil
}
