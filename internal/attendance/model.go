package attendance

import (
	"time"

	"boostify/internal/backend"
	"boostify/internal/listview"
)

// DefaultAvatar is shown when the profile has no uploaded image.
const DefaultAvatar = "/static/user.svg"

const (
	logDateLayout     = "Monday, January 2, 2006"
	logTimeLayout     = "03:04:05 PM"
	historyDateLayout = "Monday 2 January 2006"
	historyTimeLayout = "3:04 pm"
)

// Record is one attendance log row. Records are produced by the backend and
// never modified here.
type Record struct {
	ID            int64
	AssistantCode string
	Name          string
	Time          time.Time
	Date          string
	Clock         string
}

// Recap is one aggregated attendance row.
type Recap struct {
	AssistantCode   string
	Name            string
	TotalAttendance int
}

// HistoryEntry is one row of the personal attendance history.
type HistoryEntry struct {
	Date string
	Time string
}

// Profile is the signed-in assistant's profile card.
type Profile struct {
	Name          string
	AssistantCode string
	AvatarURL     string
}

// HasCustomAvatar reports whether an uploaded avatar is shown.
func (p Profile) HasCustomAvatar() bool {
	return p.AvatarURL != "" && p.AvatarURL != DefaultAvatar
}

// LiveReportPage is the view model of the attendance log.
type LiveReportPage struct {
	Records []Record
	Page    listview.PageState
	Date    string
}

// RecapPage is the view model of the recap view. Podium is only filled on page 1.
type RecapPage struct {
	Podium  listview.Podium[Recap]
	Entries []Recap
	Page    listview.PageState
	Date    string
}

// ProfilePage is the view model of the profile view.
type ProfilePage struct {
	Profile Profile
	History []HistoryEntry
}

func recordFrom(r backend.AttendanceRecord, loc *time.Location) Record {
	t := r.Time.In(loc)
	return Record{
		ID:            r.ID,
		AssistantCode: r.AssistantCode,
		Name:          r.Name,
		Time:          t,
		Date:          t.Format(logDateLayout),
		Clock:         t.Format(logTimeLayout),
	}
}

func recapFrom(r backend.RecapEntry) Recap {
	return Recap{AssistantCode: r.AssistantCode, Name: r.Name, TotalAttendance: r.TotalAttendance}
}

func historyFrom(a backend.AttendanceTime, loc *time.Location) HistoryEntry {
	if a.RawTime.IsZero() {
		return HistoryEntry{Time: a.Time}
	}
	t := a.RawTime.In(loc)
	return HistoryEntry{Date: t.Format(historyDateLayout), Time: t.Format(historyTimeLayout)}
}
