package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsProductURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"five part slug", "https://site/a-b-c-d-e", true},
		{"long slug", "https://www.modani.com/rectangular-walnut-dining-table-90in", true},
		{"trailing slash", "https://site/a-b-c-d-e/", true},
		{"query ignored", "https://site/a-b-c-d-e?color=red", true},
		{"three part slug", "https://site/a-b-c", false},
		{"four part slug", "https://site/a-b-c-d", false},
		{"two segments", "https://site/cat/a-b-c-d-e", false},
		{"root", "https://site/", false},
		{"no path", "https://site", false},
		{"unparseable", "http://%zz", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsProductURL(tt.url), tt.url)
		})
	}
}

func TestFilterProductURLsKeepsOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	in := []string{
		"https://site/b-b-b-b-b",
		"https://site/living-room",
		"https://site/a-a-a-a-a",
		"https://site/b-b-b-b-b",
		"https://site/sofas/x-x-x-x-x",
	}
	got := FilterProductURLs(in)
	require.Equal(t, []string{
		"https://site/b-b-b-b-b",
		"https://site/a-a-a-a-a",
		"https://site/b-b-b-b-b",
	}, got)
}

func FuzzIsProductURL(f *testing.F) {
	for _, seed := range []string{"https://site/a-b-c-d-e", "https://site/a", "::"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		first := IsProductURL(raw)
		if IsProductURL(raw) != first {
			t.Fatalf("IsProductURL(%q) is not deterministic", raw)
		}
	})
}
