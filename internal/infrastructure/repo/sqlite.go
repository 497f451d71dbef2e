package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

// SQLiteRepo is the single-node store used when DATABASE_URL is sqlite://.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	r := &SQLiteRepo{db: db}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepo) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS payment_sessions (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			amount_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			receipt TEXT,
			url TEXT,
			client_key TEXT,
			service_id TEXT,
			plan_type TEXT,
			email TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS payment_verifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			payment_id TEXT,
			valid INTEGER NOT NULL,
			request_id TEXT,
			client_ip TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_verifications_order ON payment_verifications(order_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepo) PutSession(ctx context.Context, s *domain.PaymentSession) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_sessions (id,provider,amount_minor,currency,status,receipt,url,client_key,service_id,plan_type,email,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, url=excluded.url, updated_at=excluded.updated_at`,
		s.ID, string(s.Provider), s.AmountMinor, s.Currency, string(s.Status), s.Receipt, s.URL, s.ClientKey, s.ServiceID, string(s.Tier), s.Email,
		s.CreatedAt.UTC().Format(time.RFC3339Nano), now)
	return err
}

func (r *SQLiteRepo) GetSession(ctx context.Context, id string) (*domain.PaymentSession, bool, error) {
	var (
		s       domain.PaymentSession
		created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id,provider,amount_minor,currency,status,receipt,url,client_key,service_id,plan_type,email,created_at FROM payment_sessions WHERE id=?`, id).
		Scan(&s.ID, (*string)(&s.Provider), &s.AmountMinor, &s.Currency, (*string)(&s.Status), &s.Receipt, &s.URL, &s.ClientKey, &s.ServiceID, (*string)(&s.Tier), &s.Email, &created)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		s.CreatedAt = t
	}
	return &s, true, nil
}

func (r *SQLiteRepo) MarkPaid(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_sessions SET status=?, updated_at=? WHERE id=?`,
		string(domain.SessionPaid), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return usecase.ErrNotFound("session")
	}
	return nil
}

func (r *SQLiteRepo) SaveVerification(ctx context.Context, a *domain.VerificationAudit) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_verifications (order_id,payment_id,valid,request_id,client_ip,created_at) VALUES (?,?,?,?,?,?)`,
		a.OrderID, a.PaymentID, a.Valid, a.RequestID, a.ClientIP, a.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// CountVerifications returns how many audit rows exist for an order.
func (r *SQLiteRepo) CountVerifications(ctx context.Context, orderID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_verifications WHERE order_id=?`, orderID).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }
