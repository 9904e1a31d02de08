package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/radscript/internal/storage"
)

// SetKeyInFile sets key to value inside section ("" for global) of the file
// at path, creating the file or the section when missing. Other lines are
// preserved verbatim. A key of the same name in a different section is left
// alone.
func SetKeyInFile(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	newLine := key
	if value != "" {
		newLine += " " + value
	}

	// start and end delimit the target section's lines; start is -1 when the
	// section does not exist.
	start, end := -1, len(lines)
	if section == "" {
		start = 0
	}
	current := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if current == section && start >= 0 {
				end = i
				break
			}
			current = strings.TrimSpace(strings.Trim(trimmed, "[]"))
			if current == section {
				start = i + 1
			}
		}
	}

	switch {
	case start < 0:
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "["+section+"]", newLine)
	case !replaceKey(lines[start:end], key, newLine):
		// insert after the last non-blank line of the section
		at := end
		for at > start && strings.TrimSpace(lines[at-1]) == "" {
			at--
		}
		lines = append(lines[:at], append([]string{newLine}, lines[at:]...)...)
	}

	return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func replaceKey(lines []string, key, newLine string) bool {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			return true
		}
	}
	return false
}
