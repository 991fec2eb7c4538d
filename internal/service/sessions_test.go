package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/authcore/internal/model"
)

func TestPruneAndCap(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mk := func(hash string, createdAgo, expiresIn time.Duration) model.Session {
		return model.Session{TokenHash: hash, CreatedAt: now.Add(-createdAgo), ExpiresAt: now.Add(expiresIn)}
	}

	tests := []struct {
		name  string
		in    []model.Session
		limit int
		want  []string
	}{
		{
			name:  "drops expired including exact boundary",
			in:    []model.Session{mk("a", time.Minute, time.Hour), mk("b", 2*time.Minute, 0), mk("c", 3*time.Minute, -time.Second)},
			limit: 5,
			want:  []string{"a"},
		},
		{
			name:  "newest first",
			in:    []model.Session{mk("old", 3*time.Minute, time.Hour), mk("new", time.Minute, time.Hour), mk("mid", 2*time.Minute, time.Hour)},
			limit: 5,
			want:  []string{"new", "mid", "old"},
		},
		{
			name:  "caps keeping most recent",
			in:    []model.Session{mk("a", 4*time.Minute, time.Hour), mk("b", 3*time.Minute, time.Hour), mk("c", 2*time.Minute, time.Hour), mk("d", time.Minute, time.Hour)},
			limit: 2,
			want:  []string{"d", "c"},
		},
		{
			name:  "tie keeps later insertion",
			in:    []model.Session{mk("first", time.Minute, time.Hour), mk("second", time.Minute, time.Hour)},
			limit: 1,
			want:  []string{"second"},
		},
		{
			name:  "empty",
			in:    nil,
			limit: 3,
			want:  []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := pruneAndCap(tc.in, now, tc.limit)
			got := make([]string, 0, len(out))
			for _, s := range out {
				got = append(got, s.TokenHash)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRemoveSession(t *testing.T) {
	t.Parallel()
	in := []model.Session{{TokenHash: "a"}, {TokenHash: "b"}}

	out, removed := removeSession(in, "a")
	require.True(t, removed)
	require.Equal(t, []model.Session{{TokenHash: "b"}}, out)
	require.Len(t, in, 2)
	require.Equal(t, "a", in[0].TokenHash)

	out, removed = removeSession(in, "zzz")
	require.False(t, removed)
	require.Len(t, out, 2)

	require.Equal(t, 1, findSession(in, "b"))
	require.Equal(t, -1, findSession(in, "zzz"))
}
