package model

import "strconv"

// Participation states derived from the stored columns.
const (
	StatusPending  = "Pending"
	StatusAccepted = "Accepted"
	StatusResulted = "Resulted"
)

// Participation links a user to a marathon. The pair (MarathonID, UserID)
// is the key.
//
// EntryNumber is -UserID while the registration waits for approval and a
// positive bib, unique within the marathon, once accepted. TimeRecord and
// Standings are nil until a result is recorded and are always set together.
type Participation struct {
	MarathonID  int64   `json:"marathon_id"`
	UserID      int64   `json:"user_id"`
	EntryNumber int64   `json:"entry_number"`
	Hotel       *string `json:"hotel"`
	TimeRecord  *string `json:"time_record"`
	Standings   *int    `json:"standings"`
}

// IsPending reports whether no bib has been assigned yet.
func (p Participation) IsPending() bool { return p.EntryNumber <= 0 }

// HasResult reports whether both result columns are set.
func (p Participation) HasResult() bool { return p.TimeRecord != nil && p.Standings != nil }

// Status derives the lifecycle state.
func (p Participation) Status() string {
	switch {
	case p.HasResult():
		return StatusResulted
	case p.IsPending():
		return StatusPending
	default:
		return StatusAccepted
	}
}

// EntryNumberDisplay is the bib as shown to people: "Pending" until accepted.
func (p Participation) EntryNumberDisplay() string {
	if p.IsPending() {
		return StatusPending
	}
	return strconv.FormatInt(p.EntryNumber, 10)
}

// ParticipationView is a participation joined with its marathon and user,
// as returned by the listing endpoints.
type ParticipationView struct {
	ID string `json:"id"` // "<marathon_id>-<user_id>"
	Participation
	State              string `json:"state"`
	EntryNumberDisplay string `json:"entry_number_display"`
	RaceName           string `json:"race_name,omitempty"`
	RaceDate           Date   `json:"race_date"`
	MarathonStatus     string `json:"marathon_status,omitempty"`
	FullName           string `json:"full_name,omitempty"`
	Email              string `json:"email,omitempty"`
}

// ParticipationID renders the composite key used in URLs.
func ParticipationID(marathonID, userID int64) string {
	return strconv.FormatInt(marathonID, 10) + "-" + strconv.FormatInt(userID, 10)
}
