package gdelt

import (
	"fmt"
	"time"
)

// IntervalRef identifies one 15 minute GDELT publication interval (UTC)
type IntervalRef struct {
	Year, Month, Day, Hour, Minute int
}

// NewIntervalRef creates an IntervalRef from a time.Time, converting to UTC
// and truncating to the interval boundary
func NewIntervalRef(t time.Time) IntervalRef {
	ut := t.UTC().Truncate(Width)
	return IntervalRef{
		Year:   ut.Year(),
		Month:  int(ut.Month()),
		Day:    ut.Day(),
		Hour:   ut.Hour(),
		Minute: ut.Minute(),
	}
}

// Width is the publication cadence of the export feed
const Width = 15 * time.Minute

// UTC returns the interval start as a time.Time
func (iv IntervalRef) UTC() time.Time {
	return time.Date(iv.Year, time.Month(iv.Month), iv.Day, iv.Hour, iv.Minute, 0, 0, time.UTC)
}

// Stamp returns the interval in feed naming format: YYYYMMDDHHMMSS
func (iv IntervalRef) Stamp() string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d00", iv.Year, iv.Month, iv.Day, iv.Hour, iv.Minute)
}

// Next returns the following interval
func (iv IntervalRef) Next() IntervalRef { return NewIntervalRef(iv.UTC().Add(Width)) }

// Row is one parsed export row. Only the columns the pipeline consumes are
// modeled; the rest of the 61 column record is ignored at parse time
type Row struct {
	GlobalEventID string `validate:"required"`
	Day           string `validate:"required,len=8,numeric"`
	Actor1Name    string
	Actor2Name    string
	NumMentions   int64 `validate:"gte=0"`
}

// column indexes into the tab separated export record
const (
	colGlobalEventID = 0
	colDay           = 1
	colActor1Name    = 6
	colActor2Name    = 16
	colNumMentions   = 31

	// minimum field count for a row to be considered well formed
	minColumns = 32
)
