// Package store executes the statements of package entity against a
// dialect.Driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/userdb"
	"github.com/syssam/userdb/dialect"
	"github.com/syssam/userdb/dialect/sql"
	"github.com/syssam/userdb/dialect/sql/sqlerr"
	"github.com/syssam/userdb/entity"
)

// DefaultCacheTTL is how long a membership lookup stays cached.
const DefaultCacheTTL = 5 * time.Minute

// Store runs user operations on a driver.
type Store struct {
	drv      dialect.Driver
	b        *sql.Builder
	log      *slog.Logger
	cache    userdb.Cache
	cacheTTL time.Duration

	// mu orders cache fills against evictions; gen counts evictions.
	mu  sync.Mutex
	gen uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithCache caches MYUSER membership lookups.
func WithCache(c userdb.Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithCacheTTL sets the TTL of cached entries.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) { s.cacheTTL = d }
}

// WithBuilder overrides the statement builder, which otherwise follows
// the dialect of the driver.
func WithBuilder(b *sql.Builder) Option {
	return func(s *Store) { s.b = b }
}

// New returns a Store running on drv.
func New(drv dialect.Driver, opts ...Option) *Store {
	s := &Store{
		drv:      drv,
		log:      slog.Default(),
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.b == nil {
		s.b = sql.Dialect(drv.Dialect())
	}
	return s
}

// Builder returns the statement builder of the store.
func (s *Store) Builder() *sql.Builder { return s.b }

// Person is the result of a person lookup.
type Person struct {
	Username string         `json:"username" msgpack:"username"`
	Columns  map[string]any `json:"columns" msgpack:"columns"`
	IsUser   bool           `json:"is_user" msgpack:"is_user"`
	Phones   []string       `json:"phones" msgpack:"phones"`
}

// GetPerson looks up the person matching the credentials together with
// its MYUSER membership and phone numbers. The PASSWORD column is not
// returned.
func (s *Store) GetPerson(ctx context.Context, creds *entity.Credentials) (*Person, error) {
	if creds == nil {
		return nil, userdb.NewMissingFieldError("username")
	}
	personSt, err := creds.SelectPerson(s.b)
	if err != nil {
		return nil, err
	}
	phoneSt, err := entity.SelectPhones(s.b, creds.Username)
	if err != nil {
		return nil, err
	}
	var (
		rows   []map[string]any
		isUser bool
		phones []string
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		maps, err := s.queryMaps(ctx, s.drv, personSt)
		if err != nil {
			return userdb.NewQueryError(entity.TablePerson, "select", err)
		}
		rows = maps
		return nil
	})
	eg.Go(func() (err error) {
		isUser, err = s.isUser(ctx, creds.Username)
		return err
	})
	eg.Go(func() error {
		var err error
		phones, err = s.phones(ctx, s.drv, phoneSt)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, userdb.NewNotFoundErrorWithKey("person", creds.Username)
	case 1:
	default:
		return nil, userdb.NewNotSingularError("person", len(rows))
	}
	cols := rows[0]
	delete(cols, entity.ColumnPassword)
	return &Person{
		Username: creds.Username,
		Columns:  cols,
		IsUser:   isUser,
		Phones:   phones,
	}, nil
}

// IsUser reports whether username has a MYUSER row.
func (s *Store) IsUser(ctx context.Context, username string) (bool, error) {
	return s.isUser(ctx, username)
}

func (s *Store) isUser(ctx context.Context, username string) (bool, error) {
	key := userKey(username)
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, key); err == nil && b != nil {
			var ok bool
			if err := msgpack.Unmarshal(b, &ok); err == nil {
				return ok, nil
			}
		}
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	ok, err := s.hasUser(ctx, s.drv, username)
	if err != nil {
		return false, err
	}
	s.remember(ctx, key, gen, ok)
	return ok, nil
}

func (s *Store) hasUser(ctx context.Context, q dialect.ExecQuerier, username string) (bool, error) {
	st, err := entity.SelectUser(s.b, username)
	if err != nil {
		return false, err
	}
	rows, err := s.queryMaps(ctx, q, st)
	if err != nil {
		return false, userdb.NewQueryError(entity.TableUser, "select", err)
	}
	return len(rows) > 0, nil
}

// remember caches a membership lookup that started at generation gen. A
// write that committed meanwhile has evicted the key and bumped the
// generation, so the possibly stale result is dropped.
func (s *Store) remember(ctx context.Context, key string, gen uint64, ok bool) {
	if s.cache == nil {
		return
	}
	b, err := msgpack.Marshal(ok)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *Store) phones(ctx context.Context, q dialect.ExecQuerier, st sql.Statement) ([]string, error) {
	maps, err := s.queryMaps(ctx, q, st)
	if err != nil {
		return nil, userdb.NewQueryError(entity.TablePersonPhone, "select", err)
	}
	var phones []string
	for _, m := range maps {
		if p, ok := m[entity.ColumnPhone].(string); ok {
			phones = append(phones, p)
		}
	}
	return phones, nil
}

// ExecResult is the outcome of one executed statement.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected" msgpack:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id" msgpack:"last_insert_id"`
}

// AddUser inserts the PERSON row, the MYUSER row and the phones of the
// user in one transaction. phones may be nil.
func (s *Store) AddUser(ctx context.Context, u *entity.User, phones *entity.Phones) ([]ExecResult, error) {
	if u == nil {
		return nil, userdb.NewMissingFieldError("username")
	}
	person, err := u.InsertPerson(s.b)
	if err != nil {
		return nil, err
	}
	user, err := u.InsertUser(s.b)
	if err != nil {
		return nil, err
	}
	stmts := []sql.Statement{person, user}
	if phones != nil {
		ins, err := phones.Insert(s.b)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ins...)
	}
	var results []ExecResult
	err = s.withTx(ctx, func(tx dialect.Tx) error {
		results, err = s.execAll(ctx, tx, "add", stmts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.evict(ctx, u.Username)
	return results, nil
}

// RemoveUser deletes the user from PERSONPHONE, VISA_MYUSER, MYUSER and
// PERSON in one transaction and returns the affected row counts.
func (s *Store) RemoveUser(ctx context.Context, username string) ([]int64, error) {
	stmts, err := entity.DeleteUser(s.b, username)
	if err != nil {
		return nil, err
	}
	var results []ExecResult
	err = s.withTx(ctx, func(tx dialect.Tx) error {
		results, err = s.execAll(ctx, tx, "remove", stmts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.evict(ctx, username)
	return affected(results), nil
}

// EditUser applies edit to the user identified by oldUsername in one
// transaction. When phones is non-nil the stored numbers are replaced by
// phones.Numbers. A new username moves the MYUSER, VISA_MYUSER and
// PERSONPHONE rows of the user along with PERSON.
func (s *Store) EditUser(ctx context.Context, oldUsername string, edit *entity.UserEdit, phones *entity.Phones) ([]int64, error) {
	newUsername := edit.NewUsername(oldUsername)
	if oldUsername != "" && newUsername != oldUsername {
		return s.renameUser(ctx, oldUsername, edit, phones)
	}
	stmts, err := entity.EditUser(s.b, oldUsername, edit)
	if err != nil {
		return nil, err
	}
	if phones != nil {
		replace, err := (&entity.Phones{Username: oldUsername, Numbers: phones.Numbers}).Replace(s.b, oldUsername)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, replace...)
	}
	var results []ExecResult
	err = s.withTx(ctx, func(tx dialect.Tx) error {
		results, err = s.execAll(ctx, tx, "edit", stmts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.evict(ctx, oldUsername)
	return affected(results), nil
}

func (s *Store) renameUser(ctx context.Context, oldUsername string, edit *entity.UserEdit, phones *entity.Phones) ([]int64, error) {
	// Surface bad input before touching the database.
	if _, err := entity.RenameUser(s.b, oldUsername, edit, entity.Dependents{}); err != nil {
		return nil, err
	}
	var results []ExecResult
	err := s.withTx(ctx, func(tx dialect.Tx) error {
		deps, err := s.dependents(ctx, tx, oldUsername)
		if err != nil {
			return err
		}
		if phones != nil {
			deps.Phones = phones.Numbers
		}
		stmts, err := entity.RenameUser(s.b, oldUsername, edit, deps)
		if err != nil {
			return err
		}
		results, err = s.execAll(ctx, tx, "edit", stmts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.evict(ctx, oldUsername, edit.NewUsername(oldUsername))
	return affected(results), nil
}

// dependents reads the rows referencing username inside tx.
func (s *Store) dependents(ctx context.Context, tx dialect.ExecQuerier, username string) (entity.Dependents, error) {
	var (
		deps entity.Dependents
		err  error
	)
	if deps.User, err = s.hasUser(ctx, tx, username); err != nil {
		return deps, err
	}
	st, err := entity.SelectVisas(s.b, username)
	if err != nil {
		return deps, err
	}
	visas, err := s.queryMaps(ctx, tx, st)
	if err != nil {
		return deps, userdb.NewQueryError(entity.TableVisaUser, "select", err)
	}
	deps.Visas = len(visas)
	if st, err = entity.SelectPhones(s.b, username); err != nil {
		return deps, err
	}
	deps.Phones, err = s.phones(ctx, tx, st)
	return deps, err
}

// withTx runs fn in a transaction, committing on success and rolling back
// on error.
func (s *Store) withTx(ctx context.Context, fn func(dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("userdb: starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &userdb.RollbackError{Err: errors.Join(err, rerr)}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("userdb: committing transaction: %w", sqlerr.Wrap(err))
	}
	return nil
}

func (s *Store) execAll(ctx context.Context, tx dialect.ExecQuerier, op string, stmts []sql.Statement) ([]ExecResult, error) {
	results := make([]ExecResult, 0, len(stmts))
	for _, st := range stmts {
		var res sql.Result
		if err := tx.Exec(ctx, st.Query, st.Args, &res); err != nil {
			s.log.DebugContext(ctx, "statement failed", "op", op, "statement", st.Inline(), "error", err)
			return nil, userdb.NewMutationError(tableOf(st.Query), op, sqlerr.Wrap(err))
		}
		var r ExecResult
		r.RowsAffected, _ = res.RowsAffected()
		r.LastInsertID, _ = res.LastInsertId()
		results = append(results, r)
	}
	return results, nil
}

// queryMaps runs st and scans every row into a column map. Byte slices
// become strings except for the picture column.
func (s *Store) queryMaps(ctx context.Context, q dialect.ExecQuerier, st sql.Statement) ([]map[string]any, error) {
	rows := &sql.Rows{}
	if err := q.Query(ctx, st.Query, st.Args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []map[string]any
	for rows.Next() {
		m := make(map[string]any)
		if err := sqlx.MapScan(rows, m); err != nil {
			return nil, err
		}
		for k, v := range m {
			m[k] = normalize(k, v)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func normalize(column string, v any) any {
	switch v := v.(type) {
	case []byte:
		if column == entity.ColumnPicture {
			return v
		}
		return string(v)
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return v
	}
}

func (s *Store) evict(ctx context.Context, usernames ...string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	for _, u := range usernames {
		if err := s.cache.Delete(ctx, userKey(u)); err != nil {
			s.log.WarnContext(ctx, "cache delete failed", "username", u, "error", err)
		}
	}
}

func userKey(username string) string {
	return userdb.CacheKey{Table: entity.TableUser, Operation: "exists", Key: username}.String()
}

func affected(results []ExecResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.RowsAffected
	}
	return out
}

// tableOf returns the table a built INSERT, UPDATE or DELETE writes to.
func tableOf(query string) string {
	for _, prefix := range []string{"INSERT INTO ", "UPDATE ", "DELETE FROM "} {
		if len(query) > len(prefix) && query[:len(prefix)] == prefix {
			rest := query[len(prefix):]
			for i, r := range rest {
				if r == ' ' || r == '(' {
					return rest[:i]
				}
			}
			return rest
		}
	}
	return ""
}
