package entity

import "time"

// Session is the half of the day a Block covers.
type Session string

const (
	SessionAM Session = "AM"
	SessionPM Session = "PM"
)

// Block is a half-day scheduling slot. (Date, Session) is unique across
// the store; SequenceNumber is strictly increasing in (Date, Session)
// order and is assigned by the store at insertion time, never by the
// caller.
type Block struct {
	ID             BlockID
	Date           Date
	Session        Session
	SequenceNumber int
	Weekend        bool
	Holiday        bool
	HolidayName    string
}

// IsWeekend derives the weekend flag from the civil date's weekday.
func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NewBlock constructs a Block with the weekend flag auto-derived from
// date. SequenceNumber is left zero; the store assigns it on insert.
func NewBlock(id BlockID, date Date, session Session) *Block {
	date = CivilDate(date)
	return &Block{
		ID:      id,
		Date:    date,
		Session: session,
		Weekend: IsWeekend(date),
	}
}
