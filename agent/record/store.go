package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultListLimit = 20
	defaultSQLiteDSN = "file:support.db"
)

type Config struct {
	Driver       string `split_words:"true" default:"sqlite"`
	DSN          string `envconfig:"DSN" default:"file:support.db"`
	Seed         bool   `split_words:"true" default:"true"`
	MaxOpenConns int    `split_words:"true" default:"10"`
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store owns the database handle. Every write runs in its own transaction.
type Store struct {
	db     *bun.DB
	now    func() time.Time
	logger zerolog.Logger
}

// Open connects to the configured database, creates the schema when it is
// missing and seeds sample data into an empty customer table.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		now:    time.Now,
		logger: log.Logger.With().Str("component", "record").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.Seed {
		if err := s.seedIfEmpty(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func openDB(cfg Config) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		sqldb, err := sql.Open("sqlite", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// A single connection serializes writers, which SQLite needs anyway.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver=%q", cfg.Driver)
	}
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*Customer)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}

	if _, err := s.db.NewCreateTable().
		Model((*Ticket)(nil)).
		IfNotExists().
		ForeignKey(`("customer_id") REFERENCES "customers" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create tickets table: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*Ticket)(nil)).
		Index("idx_tickets_customer_id").
		Column("customer_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create tickets index: %w", err)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Customer)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return getCustomer(ctx, s.db, id)
}

func getCustomer(ctx context.Context, db bun.IDB, id int64) (*Customer, error) {
	c := new(Customer)
	if err := db.NewSelect().Model(c).Where("c.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customerNotFound(id)
		}
		return nil, fmt.Errorf("select customer id=%d: %w", id, err)
	}
	return c, nil
}

func customerNotFound(id int64) error {
	return fmt.Errorf("customer with id=%d %w", id, ErrNotFound)
}

// ListCustomers returns customers ordered by id. An empty status lists all
// customers; limit <= 0 falls back to DefaultListLimit.
func (s *Store) ListCustomers(ctx context.Context, status CustomerStatus, limit int) ([]Customer, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: status %q is not one of active, disabled", ErrValidation, status)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	customers := make([]Customer, 0)
	q := s.db.NewSelect().Model(&customers).OrderExpr("c.id ASC").Limit(limit)
	if status != "" {
		q = q.Where("c.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// UpdateCustomer applies patch under a row lock. updated_at never moves
// backwards, even when the clock does. An empty patch returns the current row.
func (s *Store) UpdateCustomer(ctx context.Context, id int64, patch CustomerPatch) (*Customer, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var out Customer
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&out).Where("c.id = ?", id)
		if s.db.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customerNotFound(id)
			}
			return fmt.Errorf("lock customer id=%d: %w", id, err)
		}
		if patch.Empty() {
			return nil
		}

		cols := patch.apply(&out)
		now := s.timestamp()
		if now.After(out.UpdatedAt) {
			out.UpdatedAt = now
		}
		cols = append(cols, "updated_at")

		if _, err := tx.NewUpdate().Model(&out).Column(cols...).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update customer id=%d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("customer_id", id).Msg("customer updated")
	return &out, nil
}

// CreateTicket inserts an open ticket and reads back the generated id and
// created_at in the same transaction.
func (s *Store) CreateTicket(ctx context.Context, customerID int64, issue string, priority Priority) (*Ticket, error) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, fmt.Errorf("%w: issue is required", ErrValidation)
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority %q is not one of low, medium, high", ErrValidation, priority)
	}

	ticket := &Ticket{
		CustomerID: customerID,
		Issue:      issue,
		Priority:   priority,
		Status:     TicketStatusOpen,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*Customer)(nil)).Where("c.id = ?", customerID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check customer id=%d: %w", customerID, err)
		}
		if !exists {
			return fmt.Errorf("%w: customer with id=%d does not exist", ErrReferential, customerID)
		}

		ticket.CreatedAt = s.timestamp()
		if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		if err := tx.NewSelect().Model(ticket).WherePK().Scan(ctx); err != nil {
			return fmt.Errorf("read back ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("ticket_id", ticket.ID).
		Int64("customer_id", customerID).
		Str("priority", string(priority)).
		Msg("ticket created")
	return ticket, nil
}

// ListTicketHistory returns the customer's tickets, newest first with ties
// broken by id. Unknown customers yield an empty slice.
func (s *Store) ListTicketHistory(ctx context.Context, customerID int64) ([]Ticket, error) {
	tickets := make([]Ticket, 0)
	if err := s.db.NewSelect().
		Model(&tickets).
		Where("t.customer_id = ?", customerID).
		OrderExpr("t.created_at DESC, t.id DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tickets for customer id=%d: %w", customerID, err)
	}

	// SQLite compares timestamps as text; re-sort on the decoded values.
	SortHistory(tickets)
	return tickets, nil
}

func SortHistory(tickets []Ticket) {
	slices.SortStableFunc(tickets, func(a, b Ticket) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
}

func (s *Store) ListActiveCustomersWithOpenTickets(ctx context.Context) ([]Customer, error) {
	open := s.db.NewSelect().
		Model((*Ticket)(nil)).
		ColumnExpr("1").
		Where("t.customer_id = c.id").
		Where("t.status = ?", TicketStatusOpen)

	customers := make([]Customer, 0)
	if err := s.db.NewSelect().
		Model(&customers).
		Where("c.status = ?", CustomerStatusActive).
		Where("EXISTS (?)", open).
		OrderExpr("c.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list active customers with open tickets: %w", err)
	}
	return customers, nil
}
