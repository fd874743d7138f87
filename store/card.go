package store

// CardStatus is the lifecycle status of a suggestion card.
type CardStatus string

const (
	// CardStatusPending is the initial status of every generated card.
	CardStatusPending CardStatus = "pending"
	// CardStatusAccepted means the user accepted the suggestion.
	CardStatusAccepted CardStatus = "accepted"
	// CardStatusRejected means the user dismissed the suggestion.
	CardStatusRejected CardStatus = "rejected"
	// CardStatusModified means the user accepted the suggestion with changes.
	CardStatusModified CardStatus = "modified"
)

func (s CardStatus) String() string {
	return string(s)
}

// TimeSlot is one alternative time proposal attached to a card.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

// SuggestionCard is the object representing one proposed scheduling action.
// PrimaryAction and Metadata are open mappings; they are serialized to JSON
// text columns on write and decoded symmetrically on read.
type SuggestionCard struct {
	ID  int32
	UID string

	Type        string
	Title       string
	Description string

	PrimaryAction map[string]any
	Alternatives  []TimeSlot
	Confidence    float64
	Metadata      map[string]any

	Status    CardStatus
	UserID    string
	CreatedTs int64
}

// FindCard is the find condition for cards.
type FindCard struct {
	UID    *string
	UserID *string
	Status *CardStatus

	Limit *int
}
