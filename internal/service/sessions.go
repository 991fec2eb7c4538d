package service

import (
	"slices"
	"time"

	"github.com/and161185/authcore/internal/model"
)

// pruneAndCap drops sessions expired as of now, orders the rest newest first by
// CreatedAt and keeps at most limit of them. Among equal CreatedAt values the one
// inserted later wins.
func pruneAndCap(ss []model.Session, now time.Time, limit int) []model.Session {
	out := make([]model.Session, 0, len(ss))
	for i := len(ss) - 1; i >= 0; i-- {
		if ss[i].ExpiresAt.After(now) {
			out = append(out, ss[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// findSession returns the index of the session with tokenHash, or -1.
func findSession(ss []model.Session, tokenHash string) int {
	return slices.IndexFunc(ss, func(s model.Session) bool { return s.TokenHash == tokenHash })
}

// removeSession returns ss without the sessions matching tokenHash and whether anything was removed.
func removeSession(ss []model.Session, tokenHash string) ([]model.Session, bool) {
	out := slices.DeleteFunc(slices.Clone(ss), func(s model.Session) bool { return s.TokenHash == tokenHash })
	return out, len(out) != len(ss)
}

// sessionInfos projects sessions to their client-visible form.
func sessionInfos(ss []model.Session) []model.SessionInfo {
	out := make([]model.SessionInfo, 0, len(ss))
	for _, s := range ss {
		out = append(out, model.SessionInfo{
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			ExpiresAt:  s.ExpiresAt,
			UserAgent:  s.UserAgent,
			IP:         s.IP,
		})
	}
	return out
}
