package session

import "time"

// Status is the derived lifecycle position of a [Session].
type Status uint8

const (
	// StatusAnonymous means no token is held and no login is in flight.
	StatusAnonymous Status = iota
	// StatusAuthenticating means a login attempt is in flight.
	StatusAuthenticating
	// StatusAuthenticated means a token and user profile are held.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User is the profile returned by the credential gateway.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// Session is the single authoritative record of the client's identity.
//
// IsAuthenticated always equals Token != "" and is only assigned by [Reduce].
// Attempt is the generation of the most recent login attempt; results carrying an older
// generation are dropped.
type Session struct {
	Token           string
	User            *User
	IsAuthenticated bool
	Loading         bool
	Attempt         uint64
}

// Status derives the lifecycle position from the session fields.
func (s Session) Status() Status {
	switch {
	case s.IsAuthenticated:
		return StatusAuthenticated
	case s.Loading:
		return StatusAuthenticating
	default:
		return StatusAnonymous
	}
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	return s
}

// Equal reports whether two sessions hold the same observable state.
func (s Session) Equal(o Session) bool {
	if s.Token != o.Token || s.IsAuthenticated != o.IsAuthenticated || s.Loading != o.Loading || s.Attempt != o.Attempt {
		return false
	}
	return usersEqual(s.User, o.User)
}

func usersEqual(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Email == b.Email &&
		a.Avatar == b.Avatar &&
		a.Role == b.Role &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// Snapshot is the persisted slice of a [Session]: the only state written to storage.
type Snapshot struct {
	Token string
	User  *User
}

// Slice extracts the persisted slice. ok is false when the session is not authenticated,
// in which case nothing should be stored.
func Slice(s Session) (Snapshot, bool) {
	if !s.IsAuthenticated || s.Token == "" || s.User == nil {
		return Snapshot{}, false
	}
	return Snapshot{Token: s.Token, User: s.User.Clone()}, true
}
