package session

// Kind names a transition for logging, audit and metrics.
type Kind uint8

const (
	// KindLoginStart marks a login attempt entering the loading state.
	KindLoginStart Kind = iota + 1
	// KindLoginSuccess installs a granted token and profile.
	KindLoginSuccess
	// KindLoginFailure ends an attempt without a session.
	KindLoginFailure
	// KindUpdateUser replaces the profile of an authenticated session.
	KindUpdateUser
	// KindLogout clears the session.
	KindLogout
	// KindRehydrate restores a persisted slice at start.
	KindRehydrate
)

func (k Kind) String() string {
	switch k {
	case KindLoginStart:
		return "login_start"
	case KindLoginSuccess:
		return "login_success"
	case KindLoginFailure:
		return "login_failure"
	case KindUpdateUser:
		return "update_user"
	case KindLogout:
		return "logout"
	case KindRehydrate:
		return "rehydrate"
	default:
		return "unknown"
	}
}

// Action is a transition request. The set of implementations is closed: only the types
// declared in this file satisfy it.
type Action interface {
	Kind() Kind
	sealed()
}

// LoginStart moves Anonymous to Authenticating and opens a new attempt generation.
type LoginStart struct{}

// LoginSuccess completes the attempt identified by Attempt.
type LoginSuccess struct {
	Attempt uint64
	Token   string
	User    *User
}

// LoginFailure aborts the attempt identified by Attempt. Reason is kept for display only.
type LoginFailure struct {
	Attempt uint64
	Reason  string
}

// UpdateUser replaces the profile of an authenticated session. The token is untouched.
type UpdateUser struct {
	User *User
}

// Logout clears the session from any state.
type Logout struct{}

// Rehydrate installs a persisted slice on a fresh Anonymous session at startup.
type Rehydrate struct {
	Snapshot Snapshot
}

func (LoginStart) Kind() Kind   { return KindLoginStart }
func (LoginSuccess) Kind() Kind { return KindLoginSuccess }
func (LoginFailure) Kind() Kind { return KindLoginFailure }
func (UpdateUser) Kind() Kind   { return KindUpdateUser }
func (Logout) Kind() Kind       { return KindLogout }
func (Rehydrate) Kind() Kind    { return KindRehydrate }

func (LoginStart) sealed()   {}
func (LoginSuccess) sealed() {}
func (LoginFailure) sealed() {}
func (UpdateUser) sealed()   {}
func (Logout) sealed()       {}
func (Rehydrate) sealed()    {}
