package script

import (
	"errors"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/rivo/uniseg"
)

// Native modules scripts may require.
const (
	ModuleText = "reactree:text"
	ModuleOS   = "reactree:os"
)

func registerModules(registry *require.Registry) {
	registry.RegisterNativeModule(ModuleText, requireText)
	registry.RegisterNativeModule(ModuleOS, requireOS)
}

// requireText exposes display-width helpers for log and blackboard strings:
//
//	const text = require('reactree:text');
//	text.width("🏳️‍🌈");           // 1
//	text.truncate("forager", 5); // "fo..."
func requireText(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	_ = exports.Set("width", func(s string) int { return uniseg.StringWidth(s) })

	_ = exports.Set("truncate", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(vm.NewGoError(errors.New("truncate requires a string and a width")))
		}
		tail := "..."
		if len(call.Arguments) > 2 {
			tail = call.Argument(2).String()
		}
		return vm.ToValue(Truncate(call.Argument(0).String(), int(call.Argument(1).ToInteger()), tail))
	})
}

// Truncate shortens s to at most width display cells, ending it with tail
// when anything was cut. A tail wider than width is returned alone.
func Truncate(s string, width int, tail string) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	room := width - uniseg.StringWidth(tail)
	if room < 0 {
		return tail
	}
	var (
		b       strings.Builder
		used    int
		cluster string
		w       int
		state   = -1
	)
	for s != "" {
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if used+w > room {
			break
		}
		used += w
		b.WriteString(cluster)
	}
	b.WriteString(tail)
	return b.String()
}

// requireOS exposes read-only host access:
//
//	const os = require('reactree:os');
//	os.getenv("HOME");
//	os.fileExists("/tmp/flag");
//	os.readFile("/tmp/flag"); // {content, error, message}
func requireOS(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	_ = exports.Set("getenv", func(key string) string { return os.Getenv(key) })

	_ = exports.Set("fileExists", func(path string) bool {
		if path == "" {
			return false
		}
		_, err := os.Stat(path)
		return err == nil
	})

	_ = exports.Set("readFile", func(path string) map[string]any {
		if path == "" {
			return map[string]any{"content": "", "error": true, "message": "empty path"}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return map[string]any{"content": "", "error": true, "message": err.Error()}
		}
		return map[string]any{"content": string(data), "error": false, "message": ""}
	})
}
