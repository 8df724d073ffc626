package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/common"
)

// MinPasswordLength is enforced on sign-up before calling the backend.
const MinPasswordLength = 6

// Status is the session lifecycle state.
type Status string

const (
	StatusUninitialized   Status = "uninitialized"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// SessionState is the observable state of a SessionStore.
type SessionState struct {
	Status   Status
	Identity *models.Identity
	Session  *models.Session
	Loading  bool
	Error    string
}

func cloneSessionState(s SessionState) SessionState {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	if s.Session != nil {
		ss := *s.Session
		s.Session = &ss
	}
	return s
}

// AvatarStorage uploads a profile picture and returns its public URL.
// *avatars.Storage implements it.
type AvatarStorage interface {
	Upload(ctx context.Context, userID string, data []byte, contentType string) (string, error)
}

// SessionStore tracks who is signed in. The identity is set from session
// change events, so sign-in through any path (including token restore)
// updates it.
type SessionStore struct {
	base
	auth    gateway.Auth
	rows    gateway.Rows
	avatars AvatarStorage
	state   *cell[SessionState]

	unsubscribe func()
}

// NewSessionStore returns an uninitialized store. avatars may be nil, in
// which case UploadAvatar fails.
func NewSessionStore(auth gateway.Auth, rows gateway.Rows, avatars AvatarStorage, opts ...Option) *SessionStore {
	return &SessionStore{
		base:    newBase("session", opts),
		auth:    auth,
		rows:    rows,
		avatars: avatars,
		state:   newCell(SessionState{Status: StatusUninitialized}, cloneSessionState),
	}
}

func (s *SessionStore) Snapshot() SessionState { return s.state.get() }

func (s *SessionStore) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	return s.state.subscribe(fn)
}

// Identity returns the signed-in identity or nil.
func (s *SessionStore) Identity() *models.Identity { return s.Snapshot().Identity }

// Close removes the session-change subscription and observers.
func (s *SessionStore) Close() {
	if !s.close() {
		return
	}
	s.serial.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.serial.Unlock()
	s.state.clearObservers()
}

func (s *SessionStore) failWith(ctx context.Context, action string, err error) Result {
	return s.fail(ctx, action, err, func(msg string) {
		s.state.update(func(st *SessionState) {
			st.Loading = false
			st.Error = msg
			if st.Status == StatusLoading {
				st.Status = StatusUnauthenticated
			}
		})
	})
}

// Initialize restores the current session, loads the identity and
// subscribes to session changes. Calling it again re-reads the session.
func (s *SessionStore) Initialize(ctx context.Context) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *SessionState) { st.Status = StatusLoading; st.Loading = true; st.Error = "" })
	if s.unsubscribe == nil {
		s.unsubscribe = s.auth.OnSessionChange(s.onSessionChange)
	}

	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return s.failWith(ctx, "initialize", err)
	}
	if sess == nil {
		s.setSignedOut()
		return ok()
	}

	id := s.fetchIdentity(ctx, *sess)
	s.setSignedIn(sess, &id)
	return ok()
}

// onSessionChange runs on the goroutine that changed the session, possibly
// while another action holds the writer lock, so it only touches state.
func (s *SessionStore) onSessionChange(ctx context.Context, ev gateway.AuthEvent, sess *models.Session) {
	if s.closed.Load() {
		return
	}
	switch ev {
	case gateway.EventSignedIn:
		if sess == nil {
			return
		}
		id := s.fetchIdentity(ctx, *sess)
		s.setSignedIn(sess, &id)
	case gateway.EventTokenRefreshed:
		if sess == nil {
			return
		}
		s.state.update(func(st *SessionState) { st.Session = sess })
	case gateway.EventSignedOut:
		s.setSignedOut()
	}
}

func (s *SessionStore) setSignedIn(sess *models.Session, id *models.Identity) {
	s.state.update(func(st *SessionState) {
		st.Status = StatusAuthenticated
		st.Session = sess
		st.Identity = id
		st.Loading = false
	})
}

func (s *SessionStore) setSignedOut() {
	s.state.update(func(st *SessionState) {
		st.Status = StatusUnauthenticated
		st.Session = nil
		st.Identity = nil
		st.Loading = false
	})
}

// fetchIdentity reads the users row, falling back to the session metadata
// when the row is missing or unreadable.
func (s *SessionStore) fetchIdentity(ctx context.Context, sess models.Session) models.Identity {
	var rows []models.Identity
	err := s.rows.Select(ctx, gateway.TableUsers, gateway.Where("id", sess.User.ID).WithLimit(1), &rows)
	if err == nil && len(rows) > 0 {
		return rows[0]
	}
	if err != nil {
		s.log.Warn(ctx, "fetch identity failed; using session metadata", "error", err)
	} else {
		s.log.Info(ctx, "identity row missing; using session metadata", "user", sess.User.ID)
	}
	return models.IdentityFromSession(sess)
}

// SignIn authenticates. The identity arrives through the session change
// subscription.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	if _, err := s.auth.SignIn(ctx, strings.TrimSpace(email), password); err != nil {
		return s.failWith(ctx, "sign in", err)
	}
	s.state.update(func(st *SessionState) { st.Loading = false })
	return ok()
}

// SignUp creates the account and then inserts the profile row. A failed
// insert is only logged; the account exists either way.
func (s *SessionStore) SignUp(ctx context.Context, email, password, fullName string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return s.failWith(ctx, "sign up", err)
	}

	var name *string
	if n := strings.TrimSpace(fullName); n != "" {
		name = &n
	}
	user, _, err := s.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return s.failWith(ctx, "sign up", err)
	}

	if user != nil && user.ID != "" {
		var created models.Identity
		in := models.NewIdentity{ID: user.ID, Email: user.Email, FullName: name}
		if in.Email == "" {
			in.Email = email
		}
		if err := s.rows.Insert(ctx, gateway.TableUsers, in, &created); err != nil {
			s.log.Warn(ctx, "create identity row failed", "user", user.ID, "error", err)
		} else {
			s.state.update(func(st *SessionState) {
				if st.Identity != nil && st.Identity.ID == created.ID {
					st.Identity = &created
				}
			})
		}
	}

	s.state.update(func(st *SessionState) { st.Loading = false })
	return ok()
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", common.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLength)
	}
	return nil
}

// SignOut ends the session. Local state is cleared even if the backend
// could not be reached.
func (s *SessionStore) SignOut(ctx context.Context) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn(ctx, "remote sign out failed", "error", err)
	}
	s.setSignedOut()
	return ok()
}

// ResetPassword asks the backend to email a reset link.
func (s *SessionStore) ResetPassword(ctx context.Context, email string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	email = strings.TrimSpace(email)
	if email == "" {
		return s.failWith(ctx, "reset password", fmt.Errorf("%w: email is required", common.ErrValidation))
	}
	if err := s.auth.RecoverPassword(ctx, email); err != nil {
		return s.failWith(ctx, "reset password", err)
	}
	s.state.update(func(st *SessionState) { st.Loading = false })
	return ok()
}

// UpdateProfile persists patch to the users row and merges it locally.
func (s *SessionStore) UpdateProfile(ctx context.Context, patch models.ProfilePatch) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	return s.updateProfileLocked(ctx, patch)
}

func (s *SessionStore) updateProfileLocked(ctx context.Context, patch models.ProfilePatch) Result {
	id := s.Identity()
	if id == nil {
		s.log.Warn(ctx, "update profile without identity")
		return failed(common.ErrNotAuthenticated)
	}
	if patch.Empty() {
		return ok()
	}

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	if err := s.rows.Update(ctx, gateway.TableUsers, id.ID, patch.Columns(), nil); err != nil {
		return s.failWith(ctx, "update profile", err)
	}
	s.state.update(func(st *SessionState) {
		if st.Identity != nil && st.Identity.ID == id.ID {
			merged := patch.Apply(*st.Identity)
			st.Identity = &merged
		}
		st.Loading = false
	})
	return ok()
}

// UploadAvatar stores the image and points the profile at it.
func (s *SessionStore) UploadAvatar(ctx context.Context, data []byte, contentType string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	id := s.Identity()
	if id == nil {
		return failed(common.ErrNotAuthenticated)
	}
	if s.avatars == nil {
		return s.failWith(ctx, "upload avatar", errors.New("avatar storage is not configured"))
	}

	s.state.update(func(st *SessionState) { st.Loading = true; st.Error = "" })
	url, err := s.avatars.Upload(ctx, id.ID, data, contentType)
	if err != nil {
		return s.failWith(ctx, "upload avatar", err)
	}
	return s.updateProfileLocked(ctx, models.ProfilePatch{AvatarURL: &url})
}
