package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/models"
)

// inOvernightWindow reports whether now falls inside the draft's overnight
// pause window. Windows are half-open [start, end) on wall-clock minutes in
// the draft's zone; start at or after end means the window crosses midnight.
func (e *Engine) inOvernightWindow(d *models.Draft, now time.Time) bool {
	if !d.OvernightPauseEnabled {
		return false
	}
	start, err := parseWallClock(d.OvernightPauseStart)
	if err != nil {
		log.Warn().
			Int64("draft_id", d.ID).
			Str("start", d.OvernightPauseStart).
			Msg("unparseable overnight window start; ignoring window")
		return false
	}
	end, err := parseWallClock(d.OvernightPauseEnd)
	if err != nil {
		log.Warn().
			Int64("draft_id", d.ID).
			Str("end", d.OvernightPauseEnd).
			Msg("unparseable overnight window end; ignoring window")
		return false
	}

	local := now.In(e.zoneFor(d))
	cur := local.Hour()*60 + local.Minute()
	if start < end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// zoneFor resolves the draft's overnight zone: per-draft setting, then the
// service default, then UTC.
func (e *Engine) zoneFor(d *models.Draft) *time.Location {
	for _, name := range []string{d.OvernightPauseTimezone, e.defaultTZ} {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			log.Warn().
				Int64("draft_id", d.ID).
				Str("timezone", name).
				Msg("unknown timezone; falling back")
			continue
		}
		return loc
	}
	return time.UTC
}

// parseWallClock converts "HH:MM" to minutes after midnight.
func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
