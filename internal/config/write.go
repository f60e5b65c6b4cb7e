package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/reactree/internal/storage"
)

// SetKeyInFile updates or adds a global option in the config file, keeping
// comments and layout. An existing global line for key is replaced in
// place; otherwise the option is inserted before the first section header,
// or appended when there is none. Keys inside [section] blocks are never
// touched.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	entry := key
	if value != "" {
		entry = key + " " + value
	}

	insertAt := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertAt = i
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = entry
			return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
		}
	}

	switch {
	case insertAt >= 0:
		lines = append(lines[:insertAt+1], lines[insertAt:]...)
		lines[insertAt] = entry
	case len(lines) > 0 && lines[len(lines)-1] == "":
		// keep the trailing newline last
		lines = append(lines[:len(lines)-1], entry, "")
	default:
		lines = append(lines, entry)
	}

	return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
