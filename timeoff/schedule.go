package timeoff

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// SCHEDULE LEDGER - Day-indexed entries behind the daily digest
// =============================================================================
// The whole ledger is one document. Every confirmation, cancellation and
// digest run is a read-modify-write cycle; the service serializes them
// through a keyed mutex.

// ScheduleEntry is one user's presence change on one day.
type ScheduleEntry struct {
	MessageID generic.MessageID `json:"messageId"`
	UserID    generic.UserID    `json:"userId"`
	Username  string            `json:"username"`
	Type      RequestType       `json:"type"`
	Period    Period            `json:"period"`
	Duration  decimal.Decimal   `json:"duration"`
}

// ScheduleDay groups the entries of one calendar day. Date is "D/M/YYYY".
type ScheduleDay struct {
	Date    string          `json:"date"`
	Entries []ScheduleEntry `json:"entries"`
}

type Schedule struct {
	Days []ScheduleDay `json:"days"`
}

func (s *Schedule) find(date string) int {
	for i := range s.Days {
		if s.Days[i].Date == date {
			return i
		}
	}
	return -1
}

// InsertOrMergeDay appends e to the day of date, creating the day if needed.
func (s *Schedule) InsertOrMergeDay(date time.Time, e ScheduleEntry) {
	key := generic.DateToString(date)
	if i := s.find(key); i >= 0 {
		s.Days[i].Entries = append(s.Days[i].Entries, e)
		return
	}
	s.Days = append(s.Days, ScheduleDay{Date: key, Entries: []ScheduleEntry{e}})
}

// RemoveEntry drops the entries of date that match. A day left empty is
// removed. Returns the number of entries removed.
func (s *Schedule) RemoveEntry(date time.Time, match func(ScheduleEntry) bool) int {
	i := s.find(generic.DateToString(date))
	if i < 0 {
		return 0
	}
	removed := s.removeAt(i, match)
	if len(s.Days[i].Entries) == 0 {
		s.Days = append(s.Days[:i], s.Days[i+1:]...)
	}
	return removed
}

// RemoveMessage drops every entry created by msg, on any day.
func (s *Schedule) RemoveMessage(msg generic.MessageID) int {
	removed := 0
	kept := s.Days[:0]
	for i := range s.Days {
		removed += s.removeAt(i, func(e ScheduleEntry) bool { return e.MessageID == msg })
		if len(s.Days[i].Entries) > 0 {
			kept = append(kept, s.Days[i])
		}
	}
	s.Days = kept
	return removed
}

func (s *Schedule) removeAt(i int, match func(ScheduleEntry) bool) int {
	entries := s.Days[i].Entries[:0]
	removed := 0
	for _, e := range s.Days[i].Entries {
		if match(e) {
			removed++
			continue
		}
		entries = append(entries, e)
	}
	s.Days[i].Entries = entries
	return removed
}

// ExtractToday returns the day matching today's date string.
func (s Schedule) ExtractToday(today time.Time) (ScheduleDay, bool) {
	if i := s.find(generic.DateToString(today)); i >= 0 {
		return s.Days[i], true
	}
	return ScheduleDay{}, false
}

// PruneBefore drops every day before cutoff. Days whose date no longer
// parses are dropped too. Returns the number of days removed.
func (s *Schedule) PruneBefore(cutoff time.Time) int {
	kept := s.Days[:0]
	for _, d := range s.Days {
		date, err := generic.StringToDate(d.Date)
		if err != nil || date.Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	removed := len(s.Days) - len(kept)
	s.Days = kept
	return removed
}

// =============================================================================
// DIGEST
// =============================================================================

// Digest is today's schedule split into buckets, each sorted for display.
type Digest struct {
	Date  string          `json:"date"`
	Off   []ScheduleEntry `json:"off"`
	WFH   []ScheduleEntry `json:"wfh"`
	Other []ScheduleEntry `json:"other"` // LATE and END_SOON
}

func (d Digest) IsEmpty() bool {
	return len(d.Off) == 0 && len(d.WFH) == 0 && len(d.Other) == 0
}

// ComposeDigest buckets a day's entries. OFF and WFH are ordered DAY,
// MORNING, AFTERNOON; the mixed bucket puts LATE before END_SOON, then
// orders by period.
func ComposeDigest(day ScheduleDay) Digest {
	d := Digest{Date: day.Date}
	for _, e := range day.Entries {
		switch e.Type {
		case TypeOff:
			d.Off = append(d.Off, e)
		case TypeWFH:
			d.WFH = append(d.WFH, e)
		default:
			d.Other = append(d.Other, e)
		}
	}

	byPeriod := func(list []ScheduleEntry) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Period.rank() < list[j].Period.rank() }
	}
	sort.SliceStable(d.Off, byPeriod(d.Off))
	sort.SliceStable(d.WFH, byPeriod(d.WFH))
	sort.SliceStable(d.Other, func(i, j int) bool {
		a, b := d.Other[i], d.Other[j]
		if a.Type != b.Type {
			return a.Type == TypeLate
		}
		return a.Period.rank() < b.Period.rank()
	})
	return d
}
