package store

// Session is a point-in-time snapshot of the card set produced by one
// generation request. Sessions are immutable after creation; a re-generation
// creates a new session instead of updating an old one.
type Session struct {
	ID  int32
	UID string

	UserID    string
	Cards     string // JSON snapshot of the generated card list
	CreatedTs int64
}

// FindSession is the find condition for sessions.
type FindSession struct {
	UID    *string
	UserID *string

	Limit *int
}
