// Package postgres implements gateway.Rows directly against the backend's
// PostgreSQL database. Every statement runs in its own transaction under the
// non-owner authenticated role with request.jwt.claims set from the caller's
// access token. The migrations force row-level security, so the policies
// apply even when the connection logs in as the table owner.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/gateway/postgres/migrations"
	"github.com/dmitrijs2005/kumo/internal/dbx"
	"github.com/dmitrijs2005/kumo/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// TokenSource returns the current access token, or "" when signed out.
type TokenSource func() string

// Store is a gateway.Rows over *sql.DB.
type Store struct {
	db     *sql.DB
	tokens TokenSource
	log    logging.Logger
}

var _ gateway.Rows = (*Store)(nil)

// Open connects with the pgx driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStore returns a Store that authenticates statements with tokens.
func NewStore(db *sql.DB, tokens TokenSource, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{db: db, tokens: tokens, log: log.With("component", "postgres")}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded backend schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate backend db: %w", err)
	}
	return nil
}

// withClaims runs fn in a transaction scoped to the caller's JWT claims.
// requestRole is the role created by the migrations. It owns no tables, so
// row-level security always applies to it.
const requestRole = "authenticated"

func (s *Store) withClaims(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	claims := []byte("{}")
	if tok := s.tokens(); tok != "" {
		c, err := gateway.ClaimsJSON(tok)
		if err != nil {
			return gateway.NewQueryError("invalid access token", err)
		}
		claims = c
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SET LOCAL ROLE `+requestRole); err != nil {
			return fmt.Errorf("set role: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims)); err != nil {
			return fmt.Errorf("set claims: %w", err)
		}
		return fn(ctx, tx)
	})
	if err != nil {
		var qe *gateway.QueryError
		if errors.As(err, &qe) {
			return err
		}
		return gateway.NewQueryError("", err)
	}
	return nil
}

func (s *Store) Select(ctx context.Context, table string, q gateway.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}

	var (
		where []string
		args  []any
	)
	for _, f := range q.Filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s::text = $%d", quote(f.Column), len(args)))
	}

	inner := "SELECT * FROM " + quote(table)
	if len(where) > 0 {
		inner += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		inner += fmt.Sprintf(" ORDER BY %s %s", quote(q.Order.Column), dir)
	}
	if q.Limit > 0 {
		inner += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	query := "SELECT coalesce(json_agg(t), '[]'::json) FROM (" + inner + ") t"

	var raw []byte
	err := s.withClaims(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return tx.QueryRowContext(ctx, query, args...).Scan(&raw)
	})
	if err != nil {
		return err
	}
	return decode(raw, dst)
}

func (s *Store) Insert(ctx context.Context, table string, values any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(values)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}
	payload, names := encode(cols)
	list := strings.Join(names, ", ")

	query := fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT %s FROM json_populate_record(NULL::%s, $1) RETURNING row_to_json(t)",
		quote(table), list, list, quote(table))

	var raw []byte
	err = s.withClaims(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return tx.QueryRowContext(ctx, query, payload).Scan(&raw)
	})
	if err != nil {
		return err
	}
	return decode(raw, dst)
}

func (s *Store) Update(ctx context.Context, table, id string, patch map[string]any, dst any) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	cols, err := gateway.Columns(patch)
	if err != nil {
		return gateway.NewQueryError(err.Error(), err)
	}
	delete(cols, "id")
	delete(cols, "created_at")
	if len(cols) == 0 {
		return gateway.NewQueryError("empty update", nil)
	}
	payload, names := encode(cols)
	list := strings.Join(names, ", ")

	query := fmt.Sprintf(
		"UPDATE %s AS t SET (%s) = (SELECT %s FROM json_populate_record(NULL::%s, $1)) WHERE t.id::text = $2 RETURNING row_to_json(t)",
		quote(table), list, list, quote(table))

	var raw []byte
	err = s.withClaims(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx, query, payload, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.NewQueryError("row not found", err)
		}
		return err
	})
	if err != nil {
		return err
	}
	return decode(raw, dst)
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if !gateway.KnownTable(table) {
		return gateway.NewQueryError(fmt.Sprintf("unknown table %q", table), nil)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id::text = $1", quote(table))
	return s.withClaims(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, query, id)
		return err
	})
}

// quote double-quotes an identifier already checked by ValidIdentifier.
func quote(ident string) string {
	return `"` + ident + `"`
}

// encode returns the JSON payload and the quoted, sorted column names.
func encode(cols map[string]any) (string, []string) {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = quote(k)
	}
	b, _ := json.Marshal(cols)
	return string(b), names
}

func decode(raw []byte, dst any) error {
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gateway.NewQueryError("could not decode rows", err)
	}
	return nil
}
