// Package sqldb implements records.Source over database/sql. The SQL it
// issues uses $N placeholders, which both go-sqlite3 and pgx accept.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/records"
	"github.com/papercomputeco/nook/pkg/vector"
)

// Store reads and writes business records.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New wraps an open database.
func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger, now: time.Now}
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '[]',
		payment_methods TEXT NOT NULL DEFAULT '[]',
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id TEXT NOT NULL,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (business_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS faqs (
		id TEXT NOT NULL,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (business_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS promotions (
		id TEXT NOT NULL,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		valid_until TIMESTAMP NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (business_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS custom_responses (
		id TEXT NOT NULL,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		trigger_text TEXT NOT NULL,
		response TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (business_id, id)
	)`,
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Documents loads the business and chunks it. A missing business yields no
// documents so the namespace is emptied on sync.
func (s *Store) Documents(ctx context.Context, namespaceID string) ([]vector.Document, error) {
	b, err := s.Load(ctx, namespaceID)
	if errors.Is(err, records.ErrNotFound) {
		s.logger.Debug("no business record for namespace", zap.String("namespace", namespaceID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return records.Chunk(b, s.now()), nil
}

// Load reads one business with all of its child records.
func (s *Store) Load(ctx context.Context, id string) (records.Business, error) {
	var (
		b        records.Business
		hoursRaw string
		payRaw   string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, address, phone, email, website,
			hours, payment_methods, updated_at
		FROM businesses WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.Address, &b.Phone,
		&b.Email, &b.Website, &hoursRaw, &payRaw, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Business{}, fmt.Errorf("%w: %s", records.ErrNotFound, id)
	}
	if err != nil {
		return records.Business{}, fmt.Errorf("loading business %q: %w", id, err)
	}

	if err := json.Unmarshal([]byte(hoursRaw), &b.Hours); err != nil {
		return records.Business{}, fmt.Errorf("decoding hours of %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payRaw), &b.PaymentMethods); err != nil {
		return records.Business{}, fmt.Errorf("decoding payment methods of %q: %w", id, err)
	}

	if b.Services, err = s.loadServices(ctx, id); err != nil {
		return records.Business{}, err
	}
	if b.FAQs, err = s.loadFAQs(ctx, id); err != nil {
		return records.Business{}, err
	}
	if b.Promotions, err = s.loadPromotions(ctx, id); err != nil {
		return records.Business{}, err
	}
	if b.Responses, err = s.loadResponses(ctx, id); err != nil {
		return records.Business{}, err
	}

	return b, nil
}

func (s *Store) loadServices(ctx context.Context, id string) ([]records.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, duration_minutes
		FROM services WHERE business_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading services of %q: %w", id, err)
	}
	defer rows.Close()

	var out []records.Service
	for rows.Next() {
		var svc records.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Price, &svc.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) loadFAQs(ctx context.Context, id string) ([]records.FAQ, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer
		FROM faqs WHERE business_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading faqs of %q: %w", id, err)
	}
	defer rows.Close()

	var out []records.FAQ
	for rows.Next() {
		var f records.FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer); err != nil {
			return nil, fmt.Errorf("scanning faq: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) loadPromotions(ctx context.Context, id string) ([]records.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, active, valid_until
		FROM promotions WHERE business_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading promotions of %q: %w", id, err)
	}
	defer rows.Close()

	var out []records.Promotion
	for rows.Next() {
		var (
			p     records.Promotion
			until sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Active, &until); err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		if until.Valid {
			t := until.Time
			p.ValidUntil = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadResponses(ctx context.Context, id string) ([]records.CustomResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trigger_text, response
		FROM custom_responses WHERE business_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading custom responses of %q: %w", id, err)
	}
	defer rows.Close()

	var out []records.CustomResponse
	for rows.Next() {
		var r records.CustomResponse
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Response); err != nil {
			return nil, fmt.Errorf("scanning custom response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Save writes a business and replaces all of its child records in one
// transaction.
func (s *Store) Save(ctx context.Context, b records.Business) error {
	if b.ID == "" {
		return fmt.Errorf("business id is required")
	}

	hoursRaw, err := json.Marshal(nonNil(b.Hours))
	if err != nil {
		return fmt.Errorf("encoding hours: %w", err)
	}
	payRaw, err := json.Marshal(nonNil(b.PaymentMethods))
	if err != nil {
		return fmt.Errorf("encoding payment methods: %w", err)
	}

	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO businesses (id, name, description, category, address, phone, email, website, hours, payment_methods, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			address = excluded.address,
			phone = excluded.phone,
			email = excluded.email,
			website = excluded.website,
			hours = excluded.hours,
			payment_methods = excluded.payment_methods,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Description, b.Category, b.Address, b.Phone, b.Email, b.Website,
		string(hoursRaw), string(payRaw), updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving business %q: %w", b.ID, err)
	}

	for _, table := range []string{"services", "faqs", "promotions", "custom_responses"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE business_id = $1", b.ID); err != nil {
			return fmt.Errorf("clearing %s of %q: %w", table, b.ID, err)
		}
	}

	for i, svc := range b.Services {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO services (id, business_id, name, description, price, duration_minutes, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			svc.ID, b.ID, svc.Name, svc.Description, svc.Price, svc.DurationMinutes, i); err != nil {
			return fmt.Errorf("saving service %q: %w", svc.ID, err)
		}
	}
	for i, f := range b.FAQs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO faqs (id, business_id, question, answer, position)
			VALUES ($1, $2, $3, $4, $5)`,
			f.ID, b.ID, f.Question, f.Answer, i); err != nil {
			return fmt.Errorf("saving faq %q: %w", f.ID, err)
		}
	}
	for i, p := range b.Promotions {
		var until sql.NullTime
		if p.ValidUntil != nil {
			until = sql.NullTime{Time: p.ValidUntil.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO promotions (id, business_id, title, description, active, valid_until, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, b.ID, p.Title, p.Description, p.Active, until, i); err != nil {
			return fmt.Errorf("saving promotion %q: %w", p.ID, err)
		}
	}
	for i, r := range b.Responses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO custom_responses (id, business_id, trigger_text, response, position)
			VALUES ($1, $2, $3, $4, $5)`,
			r.ID, b.ID, r.Trigger, r.Response, i); err != nil {
			return fmt.Errorf("saving custom response %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing business %q: %w", b.ID, err)
	}
	return nil
}

// Delete removes a business and its child records.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"services", "faqs", "promotions", "custom_responses"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE business_id = $1", id); err != nil {
			return fmt.Errorf("deleting %s of %q: %w", table, id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM businesses WHERE id = $1", id); err != nil {
		return fmt.Errorf("deleting business %q: %w", id, err)
	}
	return tx.Commit()
}

// ListIDs returns every business id, sorted.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM businesses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing businesses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning business id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

var _ records.Source = (*Store)(nil)
