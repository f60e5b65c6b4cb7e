package builtin

import (
	"context"
	"testing"

	"github.com/joeycumines/reactree/internal/builtin/script"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Options{})
	require.Equal(t, []string{
		"check",
		"constant_score",
		"cooldown",
		"expr_check",
		"expr_score",
		"fallback",
		"idle",
		"invert",
		"plan",
		"repeat",
		"return",
		"score",
		"script",
		"sequence",
		"set_value",
		"succeed_after",
	}, reg.Kinds())

	for _, kind := range reg.Kinds() {
		a, err := reg.New(kind)
		require.NoError(t, err, kind)
		require.Equal(t, kind, a.Kind(), "factory for %q builds the matching kind", kind)
	}
}

func TestRegister_BindsScriptRuntime(t *testing.T) {
	t.Parallel()

	rt, err := script.NewRuntime(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	reg := NewRegistry(Options{Runtime: rt})
	a, err := reg.New("script")
	require.NoError(t, err)
	b, err := reg.New("script")
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.IsType(t, new(script.Script), a)
}
