package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML_ValidPolicy(t *testing.T) {
	content := `
name: ci-policy
default: WARN
rules:
  - id: "40012"
    action: FAIL
    note: reflected XSS
  - id: CVE-2023-*
    action: WARN
  - id: "10020"
    action: IGNORE
    note: headers set by ingress
`
	path := writePolicy(t, "policy.yaml", content)

	p, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML() error: %v", err)
	}
	if p.Name != "ci-policy" {
		t.Errorf("expected name %q, got %q", "ci-policy", p.Name)
	}
	if p.DefaultAction() != ActionWarn {
		t.Errorf("expected default WARN, got %q", p.DefaultAction())
	}
	if len(p.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(p.Rules))
	}
	if p.Rules[0].ID != "40012" || p.Rules[0].Action != ActionFail {
		t.Errorf("rule 1 = %+v, want 40012/FAIL", p.Rules[0])
	}
	if p.Rules[1].ID != "CVE-2023-*" {
		t.Errorf("rule 2 id = %q, want CVE-2023-*", p.Rules[1].ID)
	}
	if p.Rules[2].Note != "headers set by ingress" {
		t.Errorf("rule 3 note = %q", p.Rules[2].Note)
	}
	if p.Source != path {
		t.Errorf("source = %q, want %q", p.Source, path)
	}
}

func TestLoadYAML_NoName(t *testing.T) {
	path := writePolicy(t, "unnamed.yaml", "rules:\n  - id: \"1\"\n    action: FAIL\n")

	p, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML() error: %v", err)
	}
	if p.Name != path {
		t.Errorf("expected name to be file path %q, got %q", path, p.Name)
	}
	if p.DefaultAction() != ActionIgnore {
		t.Errorf("expected implicit default IGNORE, got %q", p.DefaultAction())
	}
}

func TestLoadYAML_UnknownAction(t *testing.T) {
	path := writePolicy(t, "bad.yaml", "rules:\n  - id: \"1\"\n    action: BLOCK\n")

	_, err := LoadYAML(path)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}

func TestLoadYAML_InvalidYAML(t *testing.T) {
	path := writePolicy(t, "bad.yaml", "{{invalid yaml")

	_, err := LoadYAML(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}

func TestLoadTSV_ValidPolicy(t *testing.T) {
	content := "# triage decisions\n" +
		"40012\tFAIL\treflected XSS\n" +
		"\n" +
		"10020\tIGNORE\n" +
		"CVE-2023-*\twarn\n"
	path := writePolicy(t, "rules.tsv", content)

	p, err := LoadTSV(path)
	if err != nil {
		t.Fatalf("LoadTSV() error: %v", err)
	}
	if len(p.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(p.Rules))
	}
	if p.Rules[0].ID != "40012" || p.Rules[0].Action != ActionFail || p.Rules[0].Note != "reflected XSS" {
		t.Errorf("rule 1 = %+v", p.Rules[0])
	}
	if p.Rules[1].Action != ActionIgnore || p.Rules[1].Note != "" {
		t.Errorf("rule 2 = %+v", p.Rules[1])
	}
	if p.Rules[2].Action != ActionWarn {
		t.Errorf("rule 3 action = %q, lowercase action should normalize", p.Rules[2].Action)
	}
	if p.DefaultAction() != ActionIgnore {
		t.Errorf("flat files have no default field; expected IGNORE, got %q", p.DefaultAction())
	}
}

func TestLoadTSV_MissingAction(t *testing.T) {
	path := writePolicy(t, "rules.tsv", "40012\n")

	_, err := LoadTSV(path)
	if err == nil {
		t.Fatal("expected error for missing action column")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}

func TestLoadTSV_UnknownAction(t *testing.T) {
	path := writePolicy(t, "rules.tsv", "40012\tOUTFAIL\n")

	_, err := LoadTSV(path)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error not ErrMalformed: %v", err)
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	yamlPath := writePolicy(t, "p.yaml", "rules:\n  - id: \"1\"\n    action: FAIL\n")
	p, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml) error: %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].Action != ActionFail {
		t.Errorf("Load(yaml) rules = %+v", p.Rules)
	}

	tsvPath := writePolicy(t, "p.tsv", "1\tWARN\n")
	p, err = Load(tsvPath)
	if err != nil {
		t.Fatalf("Load(tsv) error: %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].Action != ActionWarn {
		t.Errorf("Load(tsv) rules = %+v", p.Rules)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load("/nonexistent/policy.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
