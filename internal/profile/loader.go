package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile describes what a PIN pad model can do. Profiles live as YAML or
// JSON files in the configured search paths; the API layer consults the
// active profile before triggering an operation.
type Profile struct {
	Vendor       string        `json:"vendor"`
	Model        string        `json:"model"`
	SecureDevice string        `json:"secure_device"`
	Description  string        `json:"description,omitempty"`
	Operations   []string      `json:"operations"`
	Transport    TransportSpec `json:"transport,omitempty"`
}

type TransportSpec struct {
	DefaultPort    string `json:"default_port,omitempty"`
	FrameDelimiter string `json:"frame_delimiter,omitempty"`
}

// Supports reports whether the device can perform the named operation.
func (p *Profile) Supports(operation string) bool {
	for _, op := range p.Operations {
		if op == operation {
			return true
		}
	}
	return false
}

type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewLoader(searchPaths []string) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

var profileExtensions = []string{".yaml", ".yml", ".json"}

// Load resolves a profile by name, validates it against the embedded
// schema and caches the result.
func (l *Loader) Load(name string) (*Profile, error) {
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*Profile), nil
	}

	var data []byte
	var foundPath string

	for _, searchPath := range l.searchPaths {
		for _, ext := range profileExtensions {
			fullPath := filepath.Join(searchPath, name+ext)
			b, err := os.ReadFile(fullPath)
			if err == nil {
				data = b
				foundPath = fullPath
				break
			}
		}
		if data != nil {
			break
		}
	}

	if data == nil {
		return nil, fmt.Errorf("profile not found: %s (searched in: %v)", name, l.searchPaths)
	}

	jsonData, err := toJSON(foundPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", foundPath, err)
	}

	if err := l.validator.Validate(jsonData); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	var p Profile
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	l.cache.Store(name, &p)
	return &p, nil
}

// toJSON normalizes YAML profiles to JSON so a single schema covers both
// formats.
func toJSON(path string, data []byte) ([]byte, error) {
	if strings.HasSuffix(path, ".json") {
		return data, nil
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return json.Marshal(doc)
}
