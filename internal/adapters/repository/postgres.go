package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/loanoffer/internal/domain/model"
)

const uniqueViolation pq.ErrorCode = "23505"

// Schema creates the tables the Postgres store reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS applicant_profiles (
	applicant_id             TEXT PRIMARY KEY,
	credit_score             DOUBLE PRECISION,
	monthly_income           DOUBLE PRECISION,
	existing_debt            DOUBLE PRECISION,
	age                      INTEGER,
	employment_status        TEXT,
	employment_tenure_months INTEGER,
	city                     TEXT,
	device_type              TEXT
);
CREATE TABLE IF NOT EXISTS offer_records (
	request_id   TEXT PRIMARY KEY,
	applicant_id TEXT NOT NULL,
	risk_score   DOUBLE PRECISION NOT NULL,
	risk_level   TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS offer_records_applicant_idx ON offer_records (applicant_id, created_at DESC);
`

const (
	selectProfileSQL = `SELECT applicant_id, credit_score, monthly_income, existing_debt, age, employment_status, employment_tenure_months, city, device_type FROM applicant_profiles WHERE applicant_id = $1`
	insertOfferSQL   = `INSERT INTO offer_records (request_id, applicant_id, risk_score, risk_level, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	selectOfferSQL   = `SELECT payload FROM offer_records WHERE request_id = $1`
	listOffersSQL    = `SELECT payload FROM offer_records WHERE applicant_id = $1 ORDER BY created_at DESC LIMIT $2`
	countOffersSQL   = `SELECT COUNT(*) FROM offer_records`
)

// PostgresConfig holds connection and pool settings.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Postgres is a Store backed by database/sql and lib/pq.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres opens a connection pool. It does not dial; call Ping to check
// connectivity.
func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required: %w", ErrInvalidRecord)
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing pool.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Ping tests the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Migrate applies Schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetProfile loads one applicant. Free-text columns are normalised through
// the model parsers, so unrecognised values become the OTHER category.
func (p *Postgres) GetProfile(ctx context.Context, applicantID string) (*model.ApplicantProfile, error) {
	var (
		id                    string
		credit, income, debt  sql.NullFloat64
		age, tenure           sql.NullInt64
		employment, city, dev sql.NullString
	)
	err := p.db.QueryRowContext(ctx, selectProfileSQL, applicantID).
		Scan(&id, &credit, &income, &debt, &age, &employment, &tenure, &city, &dev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", applicantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %s: %w", applicantID, err)
	}

	profile := &model.ApplicantProfile{
		ApplicantID:            id,
		CreditScore:            nullFloat(credit),
		MonthlyIncome:          nullFloat(income),
		ExistingDebt:           nullFloat(debt),
		Age:                    nullInt(age),
		EmploymentTenureMonths: nullInt(tenure),
	}
	if employment.Valid {
		profile.EmploymentStatus = model.ParseEmploymentStatus(employment.String)
	}
	if city.Valid {
		profile.City = model.ParseCity(city.String)
	}
	if dev.Valid {
		profile.Device = model.ParseDeviceType(dev.String)
	}
	return profile, nil
}

// SaveOffer inserts rec with the full record as a JSON payload.
func (p *Postgres) SaveOffer(ctx context.Context, rec model.OfferRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal offer %s: %w", rec.RequestID, err)
	}
	_, err = p.db.ExecContext(ctx, insertOfferSQL,
		rec.RequestID, rec.ApplicantID, rec.RiskScore, string(rec.RiskLevel), payload, rec.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("offer %s: %w", rec.RequestID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert offer %s: %w", rec.RequestID, err)
	}
	return nil
}

// GetOffer loads the record for requestID.
func (p *Postgres) GetOffer(ctx context.Context, requestID string) (model.OfferRecord, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, selectOfferSQL, requestID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OfferRecord{}, fmt.Errorf("offer %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return model.OfferRecord{}, fmt.Errorf("query offer %s: %w", requestID, err)
	}
	var rec model.OfferRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return model.OfferRecord{}, fmt.Errorf("decode offer %s: %w", requestID, err)
	}
	return rec, nil
}

// ListByApplicant returns up to limit records, newest first.
func (p *Postgres) ListByApplicant(ctx context.Context, applicantID string, limit int) ([]model.OfferRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := p.db.QueryContext(ctx, listOffersSQL, applicantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list offers for %s: %w", applicantID, err)
	}
	defer rows.Close()

	var out []model.OfferRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		var rec model.OfferRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode offer: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list offers for %s: %w", applicantID, err)
	}
	return out, nil
}

// Count returns the number of stored offer records, or 0 if the query fails.
func (p *Postgres) Count(ctx context.Context) int {
	var n int
	if err := p.db.QueryRowContext(ctx, countOffersSQL).Scan(&n); err != nil {
		return 0
	}
	return n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float64(v.Float64)
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.Int(int(v.Int64))
}
