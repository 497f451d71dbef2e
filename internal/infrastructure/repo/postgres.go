package repo

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepo) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS payment_sessions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		amount_minor BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		receipt TEXT,
		url TEXT,
		client_key TEXT,
		service_id TEXT,
		plan_type TEXT,
		email TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE TABLE IF NOT EXISTS payment_verifications (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL,
		payment_id TEXT,
		valid BOOLEAN NOT NULL,
		request_id TEXT,
		client_ip TEXT,
		created_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_verifications_order ON payment_verifications(order_id);`)
	return err
}

func (r *PostgresRepo) PutSession(ctx context.Context, s *domain.PaymentSession) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_sessions (id,provider,amount_minor,currency,status,receipt,url,client_key,service_id,plan_type,email,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
		ON CONFLICT (id) DO UPDATE SET status=$5,url=$7,updated_at=now()`,
		s.ID, string(s.Provider), s.AmountMinor, s.Currency, string(s.Status), s.Receipt, s.URL, s.ClientKey, s.ServiceID, string(s.Tier), s.Email, s.CreatedAt)
	return err
}

func (r *PostgresRepo) GetSession(ctx context.Context, id string) (*domain.PaymentSession, bool, error) {
	var s domain.PaymentSession
	err := r.db.QueryRowContext(ctx, `SELECT id,provider,amount_minor,currency,status,receipt,url,client_key,service_id,plan_type,email,created_at FROM payment_sessions WHERE id=$1`, id).
		Scan(&s.ID, (*string)(&s.Provider), &s.AmountMinor, &s.Currency, (*string)(&s.Status), &s.Receipt, &s.URL, &s.ClientKey, &s.ServiceID, (*string)(&s.Tier), &s.Email, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (r *PostgresRepo) MarkPaid(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_sessions SET status=$2, updated_at=now() WHERE id=$1`, id, string(domain.SessionPaid))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return usecase.ErrNotFound("session")
	}
	return nil
}

func (r *PostgresRepo) SaveVerification(ctx context.Context, a *domain.VerificationAudit) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_verifications (order_id,payment_id,valid,request_id,client_ip,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		a.OrderID, a.PaymentID, a.Valid, a.RequestID, a.ClientIP, a.CreatedAt)
	return err
}

func (r *PostgresRepo) Close() error { return r.db.Close() }
