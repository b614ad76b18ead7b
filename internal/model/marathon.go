package model

// Marathon statuses. Only Active marathons accept registrations.
const (
	MarathonActive    = "Active"
	MarathonCancelled = "Cancelled"
	MarathonPostponed = "Postponed"
	MarathonCompleted = "Completed"
)

// Marathon is a race participants can register for.
//
// Fields:
//
//	ID       – marathons.id
//	RaceName – display name of the race.
//	RaceDate – calendar day of the race; cancellation closes the day before.
//	Status   – one of Active, Cancelled, Postponed, Completed.
type Marathon struct {
	ID       int64  `json:"id"`
	RaceName string `json:"race_name"`
	RaceDate Date   `json:"race_date"`
	Status   string `json:"status"`
}

// ValidMarathonStatus reports whether s is one of the four known statuses.
func ValidMarathonStatus(s string) bool {
	switch s {
	case MarathonActive, MarathonCancelled, MarathonPostponed, MarathonCompleted:
		return true
	}
	return false
}
