package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	require.Equal(t, want, h.Hash([]byte("hello world")))
	require.Equal(t, want, h.Hash([]byte("hello world")))
	require.NotEqual(t, want, h.Hash([]byte("hello world!")))
}
