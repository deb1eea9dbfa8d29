package declarative

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTreeFile reads a tree definition from a file. Format is auto-detected
// from the extension (.yaml, .yml, .json).
func LoadTreeFile(path string) (*TreeDefinition, error) {
	data, format, err := readDefinition(path)
	if err != nil {
		return nil, err
	}
	return LoadTreeBytes(data, format)
}

// LoadTreeBytes parses raw bytes into a tree definition. format must be
// "yaml" or "json".
func LoadTreeBytes(data []byte, format string) (*TreeDefinition, error) {
	var def TreeDefinition
	if err := unmarshal(data, format, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadMachineFile reads a machine definition from a file.
func LoadMachineFile(path string) (*MachineDefinition, error) {
	data, format, err := readDefinition(path)
	if err != nil {
		return nil, err
	}
	return LoadMachineBytes(data, format)
}

// LoadMachineBytes parses raw bytes into a machine definition.
func LoadMachineBytes(data []byte, format string) (*MachineDefinition, error) {
	var def MachineDefinition
	if err := unmarshal(data, format, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func readDefinition(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read definition file: %w", err)
	}
	format := detectFormat(path)
	if format == "" {
		return nil, "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	return data, format, nil
}

func unmarshal(data []byte, format string, out any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}
	return nil
}

// detectFormat returns "yaml" or "json" based on file extension, or "" if
// unknown.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
