package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/tersedak-care/apiserver/types"
	"golang.org/x/sync/singleflight"
)

// State is a snapshot of the session.
type State struct {
	// User is nil when nobody is signed in.
	User *types.UserProfile
	// Loading is true while the initial re-validation is in flight.
	Loading bool
}

// Session holds the current user. It re-validates against GET /auth/me once,
// on the first Load, and again only after Invalidate.
type Session struct {
	client *Client
	group  singleflight.Group

	mu          sync.Mutex
	state       State
	loaded      bool
	nextID      int
	subscribers map[int]func(State)
}

func newSession(c *Client) *Session {
	return &Session{client: c, subscribers: map[int]func(State){}}
}

// User returns the signed-in user, or nil.
func (s *Session) User() *types.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	user := *s.state.User
	return &user
}

func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// Subscribe registers fn to receive every state change and returns a func
// that removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

type meResponse struct {
	User types.UserProfile `json:"user"`
}

// Load resolves the session cookie to a user. Concurrent callers share one
// request; once loaded, further calls return without contacting the server.
// A 401 is not an error: it leaves the session signed out.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	_, err, _ := s.group.Do("load", func() (any, error) {
		s.mu.Lock()
		loaded := s.loaded
		s.mu.Unlock()
		if loaded {
			return nil, nil
		}

		s.update(func(st *State) { st.Loading = true })

		var resp meResponse
		err := s.client.do(ctx, http.MethodGet, "/auth/me", nil, &resp)
		switch {
		case err == nil:
			s.finishLoad(&resp.User)
		case IsUnauthorized(err):
			s.finishLoad(nil)
			err = nil
		default:
			s.update(func(st *State) { st.Loading = false })
		}
		return nil, err
	})
	return err
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string            `json:"message"`
	User    types.UserProfile `json:"user"`
	Token   string            `json:"token"`
}

// Login signs in and stores the user on success.
func (s *Session) Login(ctx context.Context, email, password string) (types.UserProfile, error) {
	var resp authResponse
	if err := s.client.do(ctx, http.MethodPost, loginPath, credentials{Email: email, Password: password}, &resp); err != nil {
		return types.UserProfile{}, err
	}
	s.finishLoad(&resp.User)
	return resp.User, nil
}

// Register creates an account, which also signs it in.
func (s *Session) Register(ctx context.Context, name, email, password string) (types.UserProfile, error) {
	var resp authResponse
	if err := s.client.do(ctx, http.MethodPost, "/auth/register", credentials{Name: name, Email: email, Password: password}, &resp); err != nil {
		return types.UserProfile{}, err
	}
	s.finishLoad(&resp.User)
	return resp.User, nil
}

// Logout asks the server to clear the cookie. Local state is cleared even
// when the request fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	s.finishLoad(nil)
	return err
}

// Invalidate forgets the user and makes the next Load re-validate.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	s.update(func(st *State) {
		st.User = nil
		st.Loading = false
	})
}

// expire signs the session out after the server rejected its token.
func (s *Session) expire() {
	s.mu.Lock()
	signedIn := s.state.User != nil
	s.mu.Unlock()
	if signedIn {
		s.Invalidate()
	}
}

func (s *Session) finishLoad(user *types.UserProfile) {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	s.update(func(st *State) {
		st.User = user
		st.Loading = false
	})
}

func (s *Session) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state
	if snapshot.User != nil {
		user := *snapshot.User
		snapshot.User = &user
	}
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
