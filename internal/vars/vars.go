package vars

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadFiles merges variable files in order; later files win. The format is
// picked from the extension: .json, .yaml/.yml, anything else is read as a
// dotenv file.
func LoadFiles(paths []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		m, err := loadFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

func loadFile(p string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return decodeFile(p, json.Unmarshal)
	case ".yaml", ".yml":
		return decodeFile(p, yaml.Unmarshal)
	default:
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		return m, nil
	}
}

func decodeFile(p string, unmarshal func([]byte, any) error) (map[string]string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	var m map[string]any
	if err := unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case string:
			out[k] = x
		case nil:
			out[k] = ""
		case map[string]any, []any:
			return nil, fmt.Errorf("parse %s: %q must be a scalar", p, k)
		default:
			out[k] = fmt.Sprint(x) // coerce numbers/bools to string
		}
	}
	return out, nil
}

// ParseAssignments turns repeated KEY=VALUE flags into a map.
func ParseAssignments(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q, want KEY=VALUE", kv)
		}
		out[k] = v
	}
	return out, nil
}
