// Package postgres implements store.Repository over PostgreSQL.
//
// Expected schema (managed by external migrations):
//
//	products (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, name TEXT NOT NULL,
//	          price_cents BIGINT NOT NULL, quantity INT NOT NULL)
//	bills    (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, customer_name TEXT NOT NULL,
//	          items JSONB NOT NULL, total_cents BIGINT NOT NULL, created_at TIMESTAMPTZ NOT NULL)
//	users    (id TEXT PRIMARY KEY, email TEXT UNIQUE NOT NULL,
//	          password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL)
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"billquick/backend/internal/domain"
	"billquick/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, accountID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, price_cents, quantity
		FROM products
		WHERE account_id = $1
		ORDER BY name
	`, accountID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) ScanProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, price_cents, quantity
		FROM products
	`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Name, &p.PriceCents, &p.Quantity); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.AccountID == "" || product.Name == "" || product.PriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, account_id, name, price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`, product.ID, product.AccountID, product.Name, product.PriceCents, product.Quantity)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, classify(err)
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, accountID string, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, price_cents, quantity
		FROM products
		WHERE id = $1 AND account_id = $2
	`, productID, accountID).Scan(&p.ID, &p.AccountID, &p.Name, &p.PriceCents, &p.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, accountID string, productID string, update domain.ProductUpdateRequest) (*domain.Product, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if update.PriceCents != nil && *update.PriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if update.Quantity != nil && *update.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}

	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = COALESCE($3, name),
		    price_cents = COALESCE($4, price_cents),
		    quantity = COALESCE($5, quantity)
		WHERE id = $1 AND account_id = $2
		RETURNING id, account_id, name, price_cents, quantity
	`, productID, accountID, update.Name, update.PriceCents, update.Quantity).
		Scan(&p.ID, &p.AccountID, &p.Name, &p.PriceCents, &p.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, accountID string, productID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE id = $1 AND account_id = $2
	`, productID, accountID)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AdjustProductQuantity is the atomic relative adjustment: a single
// server-side UPDATE applying the signed delta. No optimistic-lock check
// and no negative clamp.
func (s *Store) AdjustProductQuantity(ctx context.Context, accountID string, productID string, delta int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $3
		WHERE id = $1 AND account_id = $2
	`, productID, accountID, delta)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.AccountID == "" || len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if bill.ID == "" {
		bill.ID = uuid.NewString()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bills (id, account_id, customer_name, items, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bill.ID, bill.AccountID, bill.CustomerName, itemsJSON, bill.TotalCents, bill.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}

	created := bill
	return &created, nil
}

func (s *Store) GetBill(ctx context.Context, accountID string, billID string) (*domain.Bill, error) {
	var bill domain.Bill
	var itemsJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, customer_name, items, total_cents, created_at
		FROM bills
		WHERE id = $1 AND account_id = $2
	`, billID, accountID).
		Scan(&bill.ID, &bill.AccountID, &bill.CustomerName, &itemsJSON, &bill.TotalCents, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Store) ListBills(ctx context.Context, accountID string, limit int) ([]domain.Bill, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, customer_name, items, total_cents, created_at
		FROM bills
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, limit)
	for rows.Next() {
		var bill domain.Bill
		var itemsJSON []byte
		if err := rows.Scan(&bill.ID, &bill.AccountID, &bill.CustomerName, &itemsJSON, &bill.TotalCents, &bill.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) TotalStockUnits(ctx context.Context, accountID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM products WHERE account_id = $1
	`, accountID).Scan(&total)
	if err != nil {
		return 0, classify(err)
	}
	return total, nil
}

func (s *Store) CountBills(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bills WHERE account_id = $1
	`, accountID).Scan(&count)
	if err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (s *Store) TotalSalesCents(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0) FROM bills WHERE account_id = $1
	`, accountID).Scan(&total)
	if err != nil {
		return 0, classify(err)
	}
	return total, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return classify(err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// classify maps low-level driver failures onto the store's error taxonomy:
// undefined-object SQLSTATEs become ErrIndexMissing (the degraded-scan
// trigger), anything that is not a server-reported query error becomes
// ErrUnavailable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42704" {
			return fmt.Errorf("%w: %s", store.ErrIndexMissing, pgErr.Message)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
