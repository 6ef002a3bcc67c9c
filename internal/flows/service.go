package flows

import (
	"context"

	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/session"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Apply != nil && s.deps.Logout.Apply != nil
}

func (s Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) UpdateUser(ctx context.Context, user session.User) (session.Session, error) {
	return RunUpdateUser(ctx, user, s.deps.Profile)
}

func (s Service) RehydrateLoader() rehydrate.LoadFunc {
	return NewRehydrateLoader(s.deps.Rehydrate)
}
