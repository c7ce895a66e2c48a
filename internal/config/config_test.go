package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := Load("/nonexistent/path/.starscope.yaml")
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.EffectiveDatabase() != ".starscope.db" {
		t.Errorf("expected default database, got %s", cfg.EffectiveDatabase())
	}
	if cfg.EffectiveAllowSyntaxErrors() {
		t.Error("expected default allow_syntax_errors false")
	}
	if opts := cfg.DBOptions(); opts.Workers != 0 || len(opts.Discover.Exclude) != 0 {
		t.Errorf("unexpected default options %+v", opts)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configContent := `
database: index/starscope.db
exclude:
  - "**/*_test.go"
  - vendor
workers: 3
languages: [ruby, go]
allow_syntax_errors: true
`
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(configContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EffectiveDatabase() != "index/starscope.db" {
		t.Errorf("database = %s", cfg.EffectiveDatabase())
	}
	if !cfg.EffectiveAllowSyntaxErrors() {
		t.Error("expected allow_syntax_errors true")
	}
	opts := cfg.DBOptions()
	if opts.Workers != 3 {
		t.Errorf("workers = %d", opts.Workers)
	}
	if !reflect.DeepEqual(opts.Discover.Exclude, []string{"**/*_test.go", "vendor"}) {
		t.Errorf("exclude = %v", opts.Discover.Exclude)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if _, ok := reg.Lookup("x.rb"); !ok {
		t.Error("ruby scanner missing")
	}
	if _, ok := reg.Lookup("x.py"); ok {
		t.Error("python scanner should be excluded")
	}
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.EffectiveDatabase() != DefaultDatabase {
		t.Errorf("database = %s", cfg.EffectiveDatabase())
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"invalid yaml": "not: [valid: yaml",
		"unknown key":  "databse: typo.db\n",
		"negative":     "workers: -1\n",
		"bad exclude":  "exclude: ['[a-']\n",
		"wrong type":   "workers: many\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			// Should fall back to defaults
			if cfg == nil || cfg.EffectiveDatabase() != DefaultDatabase {
				t.Errorf("expected defaults on error, got %+v", cfg)
			}
		})
	}
}

func TestNewDBUnknownLanguage(t *testing.T) {
	cfg := &Config{Languages: []string{"cobol"}}
	if _, err := cfg.NewDB(); err == nil {
		t.Error("expected error for unknown language")
	}
}
