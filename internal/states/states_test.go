package states

import (
	"testing"

	"github.com/civicstack/uidai-lake/internal/normalize"
	"github.com/stretchr/testify/require"
)

func TestLake_States_ResolveAllMasterVariants(t *testing.T) {
	t.Parallel()

	vocab := Master()
	r := NewResolver(vocab)
	require.Equal(t, len(vocab), r.Len())

	for variant, want := range vocab {
		got, ok := r.Resolve(variant)
		require.True(t, ok, "variant %q must resolve", variant)
		require.Equal(t, want, got)

		// Keys are stored normalized, so resolution must survive a
		// round trip through the normalizer.
		require.Equal(t, variant, normalize.Clean(variant))
	}
}

func TestLake_States_UnresolvedValues(t *testing.T) {
	t.Parallel()

	r := NewResolver(Master())
	for _, input := range []string{"xanadu", "up", "", "new delhi", "Uttar Pradesh"} {
		_, ok := r.Resolve(input)
		require.False(t, ok, "input %q must not resolve", input)
	}
}

func TestLake_States_VocabularyIsCopied(t *testing.T) {
	t.Parallel()

	vocab := Vocabulary{"goa": "Goa"}
	r := NewResolver(vocab)
	vocab["goa"] = "Mutated"
	vocab["bihar"] = "Bihar"

	got, ok := r.Resolve("goa")
	require.True(t, ok)
	require.Equal(t, "Goa", got)

	_, ok = r.Resolve("bihar")
	require.False(t, ok)
}
