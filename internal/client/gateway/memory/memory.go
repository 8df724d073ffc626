// Package memory is an in-process gateway.Gateway. It backs the demo mode of
// the CLI and the store tests, and supports injecting failures per table and
// operation.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/google/uuid"
)

// Op names a row operation for failure injection.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Row is a stored row as decoded JSON.
type Row = map[string]any

type account struct {
	id        string
	email     string
	password  string
	metadata  map[string]any
	createdAt time.Time
}

// Gateway keeps accounts and tables in memory. Safe for concurrent use.
type Gateway struct {
	mu        sync.Mutex
	accounts  map[string]*account // by email
	tables    map[string][]Row
	session   *models.Session
	failures  map[string]string
	recovered []string
	last      time.Time

	listeners gateway.Listeners

	secret []byte
	ttl    time.Duration
	now    func() time.Time

	// RequireConfirmation makes SignUp return no session, like a backend
	// with email confirmation enabled.
	RequireConfirmation bool
}

var _ gateway.Gateway = (*Gateway)(nil)

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{
		accounts: make(map[string]*account),
		tables:   make(map[string][]Row),
		failures: make(map[string]string),
		secret:   []byte("kumo-memory-gateway"),
		ttl:      time.Hour,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (g *Gateway) SetClock(now func() time.Time) {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
}

// Fail makes every op on table return a QueryError with message until Heal
// is called. An empty table fails the op on every table.
func (g *Gateway) Fail(op Op, table, message string) {
	g.mu.Lock()
	g.failures[failKey(op, table)] = message
	g.mu.Unlock()
}

// Heal removes an injected failure.
func (g *Gateway) Heal(op Op, table string) {
	g.mu.Lock()
	delete(g.failures, failKey(op, table))
	g.mu.Unlock()
}

// FailAuth makes auth calls fail with message; an empty message heals.
func (g *Gateway) FailAuth(message string) {
	g.mu.Lock()
	if message == "" {
		delete(g.failures, "auth")
	} else {
		g.failures["auth"] = message
	}
	g.mu.Unlock()
}

func failKey(op Op, table string) string { return string(op) + ":" + table }

func (g *Gateway) failure(op Op, table string) error {
	if msg, ok := g.failures[failKey(op, table)]; ok {
		return gateway.NewQueryError(msg, nil)
	}
	if msg, ok := g.failures[failKey(op, "")]; ok {
		return gateway.NewQueryError(msg, nil)
	}
	return nil
}

func (g *Gateway) authFailure() error {
	if msg, ok := g.failures["auth"]; ok {
		return gateway.NewAuthError(msg, nil)
	}
	return nil
}

// tick returns a strictly increasing timestamp so created_at ordering is
// deterministic even for back-to-back inserts.
func (g *Gateway) tick() time.Time {
	t := g.now().UTC()
	if !t.After(g.last) {
		t = g.last.Add(time.Microsecond)
	}
	g.last = t
	return t
}

// Table returns a copy of the rows stored in table.
func (g *Gateway) Table(table string) []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Row, 0, len(g.tables[table]))
	for _, r := range g.tables[table] {
		out = append(out, cloneRow(r))
	}
	return out
}

// Recovered lists the emails passed to RecoverPassword.
func (g *Gateway) Recovered() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.recovered...)
}

// AddAccount registers credentials without emitting events or creating a
// users row. It returns the new user id.
func (g *Gateway) AddAccount(email, password string, metadata map[string]any) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addAccountLocked(email, password, metadata).id
}

func (g *Gateway) addAccountLocked(email, password string, metadata map[string]any) *account {
	a := &account{
		id:        uuid.NewString(),
		email:     strings.ToLower(email),
		password:  password,
		metadata:  metadata,
		createdAt: g.tick(),
	}
	g.accounts[a.email] = a
	return a
}

// ---- auth ----

func (g *Gateway) issueLocked(a *account) (*models.Session, error) {
	now := g.now()
	tok, err := gateway.SignToken(a.id, a.email, a.metadata, g.ttl, now, g.secret)
	if err != nil {
		return nil, gateway.NewAuthError("could not issue session", err)
	}
	s := &models.Session{
		AccessToken:  tok,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresIn:    int64(g.ttl / time.Second),
		ExpiresAt:    now.Add(g.ttl).Unix(),
		User: models.SessionUser{
			ID:           a.id,
			Email:        a.email,
			UserMetadata: a.metadata,
			CreatedAt:    a.createdAt,
			UpdatedAt:    a.createdAt,
		},
	}
	g.session = s
	cp := *s
	return &cp, nil
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	g.mu.Lock()
	if err := g.authFailure(); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	a, ok := g.accounts[strings.ToLower(email)]
	if !ok || a.password != password {
		g.mu.Unlock()
		return nil, gateway.NewAuthError("Invalid login credentials", nil)
	}
	s, err := g.issueLocked(a)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	g.listeners.Emit(ctx, gateway.EventSignedIn, s)
	return s, nil
}

func (g *Gateway) SignUp(ctx context.Context, email, password string, fullName *string) (*models.SessionUser, *models.Session, error) {
	g.mu.Lock()
	if err := g.authFailure(); err != nil {
		g.mu.Unlock()
		return nil, nil, err
	}
	if _, exists := g.accounts[strings.ToLower(email)]; exists {
		g.mu.Unlock()
		return nil, nil, gateway.NewAuthError("User already registered", nil)
	}
	md := map[string]any{}
	if fullName != nil {
		md["full_name"] = *fullName
	}
	a := g.addAccountLocked(email, password, md)
	user := &models.SessionUser{ID: a.id, Email: a.email, UserMetadata: md, CreatedAt: a.createdAt, UpdatedAt: a.createdAt}

	if g.RequireConfirmation {
		g.mu.Unlock()
		return user, nil, nil
	}
	s, err := g.issueLocked(a)
	g.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	g.listeners.Emit(ctx, gateway.EventSignedIn, s)
	return user, s, nil
}

func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	err := g.authFailure()
	g.session = nil
	g.mu.Unlock()

	g.listeners.Emit(ctx, gateway.EventSignedOut, nil)
	return err
}

func (g *Gateway) CurrentSession(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authFailure(); err != nil {
		return nil, err
	}
	if g.session == nil {
		return nil, nil
	}
	cp := *g.session
	return &cp, nil
}

// Refresh reissues the current session and emits EventTokenRefreshed.
func (g *Gateway) Refresh(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	if g.session == nil {
		g.mu.Unlock()
		return nil, gateway.NewAuthError("no session to refresh", nil)
	}
	a := g.accounts[g.session.User.Email]
	s, err := g.issueLocked(a)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	g.listeners.Emit(ctx, gateway.EventTokenRefreshed, s)
	return s, nil
}

func (g *Gateway) OnSessionChange(l gateway.SessionListener) func() {
	return g.listeners.Add(l)
}

func (g *Gateway) RecoverPassword(ctx context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authFailure(); err != nil {
		return err
	}
	g.recovered = append(g.recovered, email)
	return nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authFailure()
}

// ---- rows ----

func hasUpdatedAt(table string) bool { return table != gateway.TableMoods }

func (g *Gateway) Select(ctx context.Context, table string, q gateway.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}
	g.mu.Lock()
	if err := g.failure(OpSelect, table); err != nil {
		g.mu.Unlock()
		return err
	}
	var out []Row
	for _, r := range g.tables[table] {
		if matches(r, q.Filters) {
			out = append(out, cloneRow(r))
		}
	}
	g.mu.Unlock()

	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][col], out[j][col])
			if asc {
				return c < 0
			}
			return c > 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []Row{}
	}
	if err := gateway.Decode(out, dst); err != nil {
		return gateway.NewQueryError("could not decode rows", err)
	}
	return nil
}

func (g *Gateway) Insert(ctx context.Context, table string, values any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(values)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	g.mu.Lock()
	if err := g.failure(OpInsert, table); err != nil {
		g.mu.Unlock()
		return err
	}
	if id, ok := cols["id"].(string); !ok || id == "" {
		cols["id"] = uuid.NewString()
	} else if g.indexLocked(table, id) >= 0 {
		g.mu.Unlock()
		return gateway.NewQueryError(fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", table), nil)
	}
	ts := g.tick().Format(time.RFC3339Nano)
	cols["created_at"] = ts
	if hasUpdatedAt(table) {
		cols["updated_at"] = ts
	}
	g.tables[table] = append(g.tables[table], cols)
	row := cloneRow(cols)
	g.mu.Unlock()

	if err := gateway.Decode(row, dst); err != nil {
		return gateway.NewQueryError("could not decode row", err)
	}
	return nil
}

func (g *Gateway) Update(ctx context.Context, table, id string, patch map[string]any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(patch)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	g.mu.Lock()
	if err := g.failure(OpUpdate, table); err != nil {
		g.mu.Unlock()
		return err
	}
	i := g.indexLocked(table, id)
	if i < 0 {
		g.mu.Unlock()
		return gateway.NewQueryError("row not found", nil)
	}
	row := g.tables[table][i]
	for k, v := range cols {
		if k == "id" || k == "created_at" {
			continue
		}
		row[k] = v
	}
	if hasUpdatedAt(table) {
		row["updated_at"] = g.tick().Format(time.RFC3339Nano)
	}
	out := cloneRow(row)
	g.mu.Unlock()

	if err := gateway.Decode(out, dst); err != nil {
		return gateway.NewQueryError("could not decode row", err)
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpDelete, table); err != nil {
		return err
	}
	if i := g.indexLocked(table, id); i >= 0 {
		rows := g.tables[table]
		g.tables[table] = append(rows[:i:i], rows[i+1:]...)
	}
	return nil
}

func (g *Gateway) indexLocked(table, id string) int {
	for i, r := range g.tables[table] {
		if r["id"] == id {
			return i
		}
	}
	return -1
}

func matches(r Row, filters []gateway.Filter) bool {
	for _, f := range filters {
		if scalar(r[f.Column]) != f.Value {
			return false
		}
	}
	return true
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func compare(a, b any) int {
	as, bs := scalar(a), scalar(b)
	if ta, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(as, bs)
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
