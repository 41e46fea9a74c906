package types

import "time"

// User is the durable record of one account: credentials plus the two
// design lists it owns. It is stored as a single JSON file keyed by Username.
type User struct {
	// Username is the unique login name and the key of the record file.
	Username string `json:"username"`

	// Email is the user's email address.
	Email string `json:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	PasswordHash string `json:"password_hash"`

	// Indoor is the ordered list of indoor items.
	Indoor []Item `json:"indoor"`

	// Outdoor is the ordered list of outdoor items.
	Outdoor []Item `json:"outdoor"`

	// NextIndoorID is the id the next indoor item will receive.
	NextIndoorID int `json:"next_indoor_id,omitempty"`

	// NextOutdoorID is the id the next outdoor item will receive.
	NextOutdoorID int `json:"next_outdoor_id,omitempty"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent write of the record.
	UpdatedAt time.Time `json:"updated_at"`
}

// Items returns the list selected by kind.
func (u *User) Items(kind Kind) []Item {
	if kind == KindOutdoor {
		return u.Outdoor
	}
	return u.Indoor
}

// SetItems replaces the list selected by kind.
func (u *User) SetItems(kind Kind, items []Item) {
	if kind == KindOutdoor {
		u.Outdoor = items
		return
	}
	u.Indoor = items
}

// NextID returns the id for a new item in the list selected by kind and
// advances the counter. Records written before counters existed start from
// the larger of the list length and the highest id in use.
func (u *User) NextID(kind Kind) int {
	counter := &u.NextIndoorID
	if kind == KindOutdoor {
		counter = &u.NextOutdoorID
	}

	items := u.Items(kind)
	floor := len(items) + 1
	for _, item := range items {
		if item.ID >= floor {
			floor = item.ID + 1
		}
	}
	if *counter < floor {
		*counter = floor
	}

	id := *counter
	*counter++
	return id
}

// Normalize materializes absent lists as empty slices.
func (u *User) Normalize() {
	if u.Indoor == nil {
		u.Indoor = []Item{}
	}
	if u.Outdoor == nil {
		u.Outdoor = []Item{}
	}
}

// Clone returns a deep copy so callers never share list backing arrays.
func (u User) Clone() User {
	out := u
	out.Indoor = append([]Item{}, u.Indoor...)
	out.Outdoor = append([]Item{}, u.Outdoor...)
	return out
}
