package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueProducesSixDigitCodes(t *testing.T) {
	now := time.Now()
	for i := 0; i < 200; i++ {
		ch, err := Issue(now, 10*time.Minute)
		require.NoError(t, err)
		require.Len(t, ch.Code, 6)
		require.GreaterOrEqual(t, ch.Code, "100000")
		require.LessOrEqual(t, ch.Code, "999999")
		require.Equal(t, HashCode(ch.Code), ch.Hash)
		require.Equal(t, now.Add(10*time.Minute), ch.ExpiresAt)
	}
}

func TestVerify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ch, err := Issue(now, 10*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		code   string
		hash   string
		expiry time.Time
		at     time.Time
		want   bool
	}{
		{"valid", ch.Code, ch.Hash, ch.ExpiresAt, now.Add(time.Minute), true},
		{"wrong code", "000000", ch.Hash, ch.ExpiresAt, now.Add(time.Minute), false},
		{"no stored hash", ch.Code, "", ch.ExpiresAt, now.Add(time.Minute), false},
		{"zero expiry", ch.Code, ch.Hash, time.Time{}, now.Add(time.Minute), false},
		{"exactly at expiry", ch.Code, ch.Hash, ch.ExpiresAt, ch.ExpiresAt, false},
		{"past expiry", ch.Code, ch.Hash, ch.ExpiresAt, ch.ExpiresAt.Add(time.Second), false},
		{"just before expiry", ch.Code, ch.Hash, ch.ExpiresAt, ch.ExpiresAt.Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Verify(tt.code, tt.hash, tt.expiry, tt.at))
		})
	}
}

func TestHashCodeNeverEchoesPlaintext(t *testing.T) {
	h := HashCode("123456")
	require.NotContains(t, h, "123456")
	require.Equal(t, h, HashCode("123456"))
	require.NotEqual(t, h, HashCode("123457"))
}
