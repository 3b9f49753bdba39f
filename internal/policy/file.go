package policy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Load reads a policy file, dispatching on extension: .yaml and .yml load
// as YAML, everything else as the flat tab-separated format.
func Load(path string) (Policy, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadTSV(path)
	}
}

// LoadYAML reads a YAML policy file: name, default action, ordered rules.
func LoadYAML(path string) (Policy, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided policy file path
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	var p Policy
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return Policy{}, fmt.Errorf("%w: parsing %s: %v", ErrMalformed, path, err)
	}

	if p.Name == "" {
		p.Name = path
	}
	p.Source = path

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadTSV reads the flat policy format: one rule per line,
// rule_id<TAB>ACTION with an optional third tab-separated note field.
// Blank lines and lines starting with # are skipped. The format matches
// the rules files ZAP-style scanners ship, so an existing triage file
// drops in unchanged.
func LoadTSV(path string) (Policy, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided policy file path
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	p := Policy{Name: path, Source: path}

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			return Policy{}, fmt.Errorf("%w: %s:%d: expected rule_id<TAB>action", ErrMalformed, path, lineno)
		}

		id := strings.TrimSpace(fields[0])
		if id == "" {
			return Policy{}, fmt.Errorf("%w: %s:%d: empty rule id", ErrMalformed, path, lineno)
		}
		action, err := ParseAction(fields[1])
		if err != nil {
			return Policy{}, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}

		r := Rule{ID: id, Action: action}
		if len(fields) == 3 {
			r.Note = strings.TrimSpace(fields[2])
		}
		p.Rules = append(p.Rules, r)
	}
	if err := sc.Err(); err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	return p, nil
}
