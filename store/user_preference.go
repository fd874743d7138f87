package store

// UserPreference holds per-user scheduling preferences (working hours,
// preferred meeting times, scheduling rules) as a JSON document.
type UserPreference struct {
	UserID      string
	Preferences string // JSON string
	UpdatedTs   int64
}

// FindUserPreference specifies the conditions for finding user preferences.
type FindUserPreference struct {
	UserID *string
}
