package password

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsStrong(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"all classes", "Str0ng!pass", true},
		{"minimum length", "Aa1!xxxx", true},
		{"too short", "Aa1!xxx", false},
		{"no uppercase", "str0ng!pass", false},
		{"no lowercase", "STR0NG!PASS", false},
		{"no digit", "Strong!pass", false},
		{"no symbol", "Str0ngpass", false},
		{"symbol outside the set", "Str0ng~pass", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsStrong(tt.password))
		})
	}
}

func TestHashAndMatches(t *testing.T) {
	hash, err := Hash("Str0ng!pass")
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng!pass", hash)
	require.True(t, Matches("Str0ng!pass", hash))
	require.False(t, Matches("other", hash))
}

func TestIsReused(t *testing.T) {
	current, err := Hash("Current1!")
	require.NoError(t, err)
	old, err := Hash("Older1!xx")
	require.NoError(t, err)

	require.True(t, IsReused("Current1!", current, nil))
	require.True(t, IsReused("Older1!xx", current, []string{old}))
	require.False(t, IsReused("Fresh1!xx", current, []string{old}))
	require.False(t, IsReused("Fresh1!xx", "", nil))
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.False(t, IsExpired(time.Time{}, now, 90))
	require.False(t, IsExpired(now.AddDate(0, 0, -90), now, 90))
	require.True(t, IsExpired(now.AddDate(0, 0, -91), now, 90))
	require.False(t, IsExpired(now.Add(-time.Hour), now, 90))
}

func TestPushHistory(t *testing.T) {
	history := []string{}
	for i := 0; i < 7; i++ {
		history = PushHistory(history, string(rune('a'+i)), 5)
	}
	require.Equal(t, []string{"g", "f", "e", "d", "c"}, history)
}
