package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetKeyInFile(t *testing.T) {
	for _, tc := range []struct {
		name    string
		initial string
		section string
		key     string
		value   string
		want    string
	}{
		{
			name:  "empty file",
			key:   "map",
			value: "a.yaml",
			want:  "map a.yaml\n",
		},
		{
			name:    "replace global keeps comments",
			initial: "# maps\nmap old.yaml\ndefs d.yaml\n",
			key:     "map",
			value:   "new.yaml",
			want:    "# maps\nmap new.yaml\ndefs d.yaml\n",
		},
		{
			name:    "insert global before first section",
			initial: "defs d.yaml\n\n[run]\nmap run.yaml\n",
			key:     "map",
			value:   "g.yaml",
			want:    "defs d.yaml\nmap g.yaml\n\n[run]\nmap run.yaml\n",
		},
		{
			name:    "section key untouched by global set",
			initial: "[run]\nsave-registry no\n",
			key:     "save-registry",
			value:   "yes",
			want:    "save-registry yes\n[run]\nsave-registry no\n",
		},
		{
			name:    "replace in section",
			initial: "defs d.yaml\n[run]\nsave-registry no\ntest no\n",
			section: "run",
			key:     "save-registry",
			value:   "yes",
			want:    "defs d.yaml\n[run]\nsave-registry yes\ntest no\n",
		},
		{
			name:    "append to existing section",
			initial: "[run]\ntest no\n\n[other]\nx y\n",
			section: "run",
			key:     "save-registry",
			value:   "yes",
			want:    "[run]\ntest no\nsave-registry yes\n\n[other]\nx y\n",
		},
		{
			name:    "create section",
			initial: "defs d.yaml\n",
			section: "run",
			key:     "test",
			value:   "on",
			want:    "defs d.yaml\n\n[run]\ntest on\n",
		},
		{
			name:    "empty value writes bare key",
			initial: "session-id abc\n",
			key:     "session-id",
			want:    "session-id\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")
			if tc.initial != "" {
				if err := os.WriteFile(path, []byte(tc.initial), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if err := SetKeyInFile(path, tc.section, tc.key, tc.value); err != nil {
				t.Fatalf("SetKeyInFile: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tc.want {
				t.Errorf("got:\n%q\nwant:\n%q", data, tc.want)
			}
		})
	}
}

func TestSetKeyInFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	if err := SetKeyInFile(path, "", "undo-levels", "12"); err != nil {
		t.Fatal(err)
	}
	if err := SetKeyInFile(path, "run", "save-registry", "true"); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.HasWarnings() {
		t.Fatalf("warnings: %v", c.Warnings)
	}
	s, err := ResolveSettings(c)
	if err != nil {
		t.Fatal(err)
	}
	if s.UndoLevels != 12 {
		t.Errorf("UndoLevels = %d", s.UndoLevels)
	}
	if !CommandBool(c, "run", "save-registry") {
		t.Errorf("save-registry not set")
	}
}
