// Package gateway defines the contract between the client stores and the
// hosted backend: an auth subsystem issuing sessions and a table-scoped row
// API. Implementations live in the rest, postgres and memory subpackages.
//
// All operations are plain request/response; nothing is retried. Failures
// are reported as *AuthError or *QueryError carrying a human-readable
// message only.
package gateway

import (
	"context"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// Remote table names.
const (
	TableUsers    = "users"
	TableMessages = "messages"
	TableTasks    = "tasks"
	TableMoods    = "moods"
)

// Tables lists every table a Rows implementation may be asked about.
var Tables = []string{TableUsers, TableMessages, TableTasks, TableMoods}

// AuthEvent is the kind of session change reported to listeners.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// SessionListener receives session changes. s is nil for EventSignedOut.
// Listeners are called synchronously from the goroutine that changed the
// session and must not call back into the same Auth while holding locks.
type SessionListener func(ctx context.Context, event AuthEvent, s *models.Session)

// Auth is the authentication half of the gateway.
type Auth interface {
	// SignIn exchanges credentials for a session and emits EventSignedIn.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// SignUp creates an account. The session is nil when the backend
	// requires email confirmation before issuing one.
	SignUp(ctx context.Context, email, password string, fullName *string) (*models.SessionUser, *models.Session, error)

	// SignOut ends the session remotely and always forgets it locally.
	SignOut(ctx context.Context) error

	// CurrentSession returns the live session, restoring a persisted one and
	// refreshing it when it is about to expire. It returns nil, nil when
	// nobody is signed in.
	CurrentSession(ctx context.Context) (*models.Session, error)

	// OnSessionChange registers l and returns a function removing it.
	OnSessionChange(l SessionListener) (unsubscribe func())

	// RecoverPassword asks the backend to send a reset link to email.
	RecoverPassword(ctx context.Context, email string) error

	// Ping checks that the auth service is reachable.
	Ping(ctx context.Context) error
}

// Rows is the table half of the gateway. dst arguments are pointers that the
// resulting JSON rows are decoded into; a nil dst discards the row.
type Rows interface {
	Select(ctx context.Context, table string, q Query, dst any) error
	Insert(ctx context.Context, table string, values any, dst any) error
	Update(ctx context.Context, table, id string, patch map[string]any, dst any) error
	Delete(ctx context.Context, table, id string) error
}

// Gateway bundles both halves for callers that need the two.
type Gateway interface {
	Auth
	Rows
}

// KnownTable reports whether table is one of Tables.
func KnownTable(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}

// SessionStorage persists the session between runs. Load returns nil, nil
// when nothing is stored.
type SessionStorage interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s models.Session) error
	Clear(ctx context.Context) error
}
