package listview

import (
	"fmt"
	"strings"
	"time"

	"github.com/templui/cortex/internal/model"
	"golang.org/x/text/cases"
)

// DateLayout renders creation dates the way the list shows them (en-US short date).
const DateLayout = "1/2/2006"

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// RelativeTime describes how long before now createdAt was. Future timestamps
// read as "just now".
func RelativeTime(now, createdAt time.Time) string {
	d := now.Sub(createdAt)
	if d < time.Second {
		return "just now"
	}

	switch {
	case d < time.Minute:
		return ago(int(d/time.Second), "second")
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < day:
		return ago(int(d/time.Hour), "hour")
	case d < week:
		return ago(int(d/day), "day")
	case d < 4*week:
		return ago(int(d/week), "week")
	case d < 12*month:
		// Clamped on purpose: 28 and 29 days would otherwise read "0 months ago".
		return ago(max(int(d/month), 1), "month")
	default:
		// Clamped on purpose: 360 to 364 days would otherwise read "0 years ago".
		return ago(max(int(d/year), 1), "year")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatTime renders a playback position as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatDuration renders a recording length as "Xm Ys".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// DefaultTitle names a fresh recording after its capture time and its position
// in the collection.
func DefaultTitle(now time.Time, n int) string {
	return fmt.Sprintf("Voice Note %s #%d", now.Format("2006-01-02 15-04-05"), n)
}

// Filter returns the notes whose title or formatted creation date contains
// query, ignoring case. A blank query returns notes as given.
func Filter(notes []*model.VoiceNote, query string, loc *time.Location) []*model.VoiceNote {
	if strings.TrimSpace(query) == "" {
		return notes
	}
	if loc == nil {
		loc = time.Local
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]*model.VoiceNote, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(fold.String(n.Title), needle) ||
			strings.Contains(fold.String(n.CreatedAt.In(loc).Format(DateLayout)), needle) {
			out = append(out, n)
		}
	}
	return out
}

// Stats summarises a collection for the header badges.
type Stats struct {
	Total     int
	Completed int
	Pending   int
	Plays     int
}

func Summarize(notes []*model.VoiceNote) Stats {
	var s Stats
	for _, n := range notes {
		s.Total++
		if n.Completed {
			s.Completed++
		}
		s.Plays += n.PlayCount
	}
	s.Pending = s.Total - s.Completed
	return s
}
