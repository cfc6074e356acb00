package model

import "time"

// User mirrors an identity account and carries the set of booked event ids.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	EventList []string  `json:"event_list"`
	CreatedAt time.Time `json:"created_at"`
}

// HasBooked reports whether eventID is in the user's reservation set.
func (u User) HasBooked(eventID string) bool {
	for _, id := range u.EventList {
		if id == eventID {
			return true
		}
	}
	return false
}
