package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cliftonc/entente/pkg/contract"
)

// fixtureFile is the on-disk shape of a fixture pool: either a bare list
// or a document with a top-level "fixtures" key.
type fixtureFile struct {
	Fixtures []*contract.Fixture `yaml:"fixtures"`
}

// LoadFile reads a fixture pool from a YAML or JSON file.
func LoadFile(path string) ([]*contract.Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures from %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture pool from YAML or JSON bytes.
func Parse(data []byte) ([]*contract.Fixture, error) {
	var doc fixtureFile
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Fixtures != nil {
		return normalizeAll(doc.Fixtures), nil
	}

	var list []*contract.Fixture
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return normalizeAll(list), nil
}

// normalizeAll re-keys stored payload maps through JSON-compatible types
// so fixture data compares equal regardless of source encoding.
func normalizeAll(fixtures []*contract.Fixture) []*contract.Fixture {
	for _, f := range fixtures {
		f.Data.Request = normalizeMap(f.Data.Request)
		f.Data.Response = normalizeMap(f.Data.Response)
	}
	return fixtures
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue converts yaml.v3 decode artifacts (map[any]any keys,
// int numbers) to the map[string]any / float64 shapes the engine
// compares against JSON-decoded request bodies.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return v
	}
}
