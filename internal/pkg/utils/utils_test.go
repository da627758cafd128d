package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aapl", "AAPL", true},
		{"  tsla ", "TSLA", true},
		{"brk.b", "BRK.B", true},
		{"^gspc", "", false},
		{"", "", false},
		{"not a ticker", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeTicker(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("  abc  ", 10))
	require.Len(t, Truncate(strings.Repeat("x", 800), 500), 500)
	require.Equal(t, "żó", Truncate("żółw", 2))
	require.Equal(t, "", Truncate("abc", 0))
}

func TestRound4(t *testing.T) {
	require.Equal(t, 0.1235, Round4(0.123456))
	require.Equal(t, -0.5, Round4(-0.50004))
	require.Equal(t, 1.0, Round4(0.99999))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 3, 4, 22, 30, 0, 0, loc)

	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DateOf(ts))
	require.Equal(t, "2024-03-05", DateKey(ts))
}
