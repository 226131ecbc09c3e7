// ABOUTME: Client-side auth store mirroring the BFF session
// ABOUTME: Hydrates once from the session route and exposes role and profile helpers

package authstore

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/client"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// State is the store's hydration state.
type State int

const (
	Unhydrated State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "hydrated-unauthenticated"
	case Authenticated:
		return "hydrated-authenticated"
	default:
		return "unhydrated"
	}
}

// ProfileStatus describes how far a user got through profile setup.
type ProfileStatus string

const (
	ProfileGuest               ProfileStatus = "guest"
	ProfileRoleDetailsComplete ProfileStatus = "role_details_complete"
	ProfileComplete            ProfileStatus = "complete"
)

// GuestRestrictedFeatures are unavailable while the primary role is guest.
var GuestRestrictedFeatures = []string{
	"submit_assignment",
	"take_quiz",
	"save_progress",
	"make_purchase",
	"access_personalized_content",
	"participate_in_discussions",
	"access_courses",
	"access_activities",
	"access_progress",
	"premium_content",
}

// Backend is the slice of the BFF the store needs.
type Backend interface {
	Session(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, emailPhone, password string) (*models.User, error)
	GoogleCallback(ctx context.Context, rawQuery string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Store holds the current user. It is safe for concurrent use.
type Store struct {
	backend Backend

	mu    sync.Mutex
	state State
	user  *models.User
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Hydrate reads the session from the backend the first time it is called.
// Later calls return immediately. An unauthorized reply hydrates to
// Unauthenticated; any other failure leaves the store unhydrated.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unhydrated {
		return nil
	}

	user, err := s.backend.Session(ctx)
	switch {
	case err == nil && user != nil:
		s.set(user)
	case err == nil || isAuthFailure(err):
		s.clear()
	default:
		return err
	}
	return nil
}

// Login authenticates with credentials. On failure the store is left signed out.
func (s *Store) Login(ctx context.Context, emailPhone, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.backend.Login(ctx, emailPhone, password)
	if err != nil {
		s.clear()
		return err
	}
	s.set(user)
	return nil
}

// LoginWithGoogle completes an OAuth callback. A store that is already
// authenticated is left as is.
func (s *Store) LoginWithGoogle(ctx context.Context, callbackQuery string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticated {
		return nil
	}

	user, err := s.backend.GoogleCallback(ctx, callbackQuery)
	if err != nil {
		s.clear()
		return err
	}
	// Prefer the session's view of the user when it is available.
	if fresh, err := s.backend.Session(ctx); err == nil && fresh != nil {
		user = fresh
	}
	s.set(user)
	return nil
}

// Logout ends the session. The store is signed out even when the backend
// call fails; the error is still returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Logout(ctx)
	s.clear()
	return err
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.Role = slices.Clone(s.user.Role)
	return &u
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

func (s *Store) HasRole(role models.Role) bool {
	return s.User().HasRole(role)
}

// IsPrimaryRole reports whether role is the user's first role.
func (s *Store) IsPrimaryRole(role models.Role) bool {
	u := s.User()
	return u != nil && len(u.Role) > 0 && u.Role[0] == role
}

func (s *Store) IsGuest() bool {
	return s.IsPrimaryRole(models.RoleGuest)
}

// CanChangeRole reports whether the user may still pick a role. Only guests can.
func (s *Store) CanChangeRole() bool {
	return s.IsGuest()
}

// ProfileStatus grades profile completeness from the cached user.
func (s *Store) ProfileStatus() ProfileStatus {
	u := s.User()
	if u == nil || u.PrimaryRole() == models.RoleGuest {
		return ProfileGuest
	}
	if u.Name == "" || u.Email == "" || u.DateOfBirth == "" {
		return ProfileGuest
	}

	var roleDetails bool
	switch u.PrimaryRole() {
	case models.RoleStudent:
		roleDetails = u.School != "" || u.Class != ""
	case models.RoleGuardian:
		roleDetails = u.Phone != ""
	}
	if roleDetails {
		return ProfileComplete
	}
	return ProfileRoleDetailsComplete
}

func (s *Store) IsProfileComplete() bool {
	return s.ProfileStatus() == ProfileComplete
}

// CanAccessFeature reports whether the signed-in user may use feature.
func (s *Store) CanAccessFeature(feature string) bool {
	u := s.User()
	if u == nil {
		return false
	}
	if u.PrimaryRole() == models.RoleGuest && slices.Contains(GuestRestrictedFeatures, feature) {
		return false
	}
	return true
}

func (s *Store) set(user *models.User) {
	s.user = user
	s.state = Authenticated
}

func (s *Store) clear() {
	s.user = nil
	s.state = Unauthenticated
}

func isAuthFailure(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}
