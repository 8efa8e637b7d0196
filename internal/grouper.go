package internal

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Unix values above this are taken as milliseconds.
const unixMillisThreshold = 1e11

// ParseTimestamp parses the timestamp formats agent exports use.
// Bare integers are Unix seconds, or milliseconds when large.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
		if n > unixMillisThreshold || n < -unixMillisThreshold {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

// GroupBySession partitions records into sessions in first-seen order.
// Turns are sorted by timestamp; unparsable timestamps go last and ties keep input order.
func GroupBySession(records []*StandardRecord) []*Session {
	var sessions []*Session
	byID := make(map[string]*Session)

	for _, r := range records {
		id := strings.TrimSpace(r.SessionID)
		if id == "" {
			id = UnknownSessionID
		}
		s, ok := byID[id]
		if !ok {
			s = &Session{SessionID: id, UserID: r.UserID}
			byID[id] = s
			sessions = append(sessions, s)
		}
		s.Turns = append(s.Turns, r)
	}

	for _, s := range sessions {
		sortTurns(s.Turns)
	}
	if sessions == nil {
		sessions = []*Session{}
	}
	LogDebug("Grouped %d records into %d sessions", len(records), len(sessions))
	return sessions
}

func sortTurns(turns []*StandardRecord) {
	type keyed struct {
		at    time.Time
		valid bool
	}
	keys := make(map[*StandardRecord]keyed, len(turns))
	for _, r := range turns {
		at, ok := ParseTimestamp(r.Timestamp)
		keys[r] = keyed{at: at, valid: ok}
	}
	sort.SliceStable(turns, func(i, j int) bool {
		a, b := keys[turns[i]], keys[turns[j]]
		if a.valid != b.valid {
			return a.valid
		}
		return a.valid && a.at.Before(b.at)
	})
}
