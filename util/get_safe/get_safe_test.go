package getsafe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessors(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"content":   "hello",
		"count":     3,
		"metadata":  map[string]any{"source": "a.txt"},
		"timestamp": ts.Format(time.RFC3339Nano),
	}

	require.Equal(t, "hello", String(payload, "content"))
	require.Empty(t, String(payload, "count"))
	require.Empty(t, String(payload, "missing"))

	require.Equal(t, map[string]any{"source": "a.txt"}, Metadata(payload, "metadata"))
	require.Nil(t, Metadata(payload, "content"))

	require.True(t, ts.Equal(Time(payload, "timestamp")))
	require.True(t, Time(payload, "content").IsZero())
}
