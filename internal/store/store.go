package store

import (
	"context"
	"errors"

	"billquick/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("store unavailable")
	ErrIndexMissing = errors.New("index missing")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence boundary. All product and bill data is
// scoped by account id; AdjustProductQuantity is the single atomic
// primitive: a signed relative delta applied server-side without any
// client-observed prior value or negative clamp.
type Repository interface {
	// ListProducts returns the account's products ordered by name. It may
	// fail with ErrIndexMissing, in which case the caller must fall back
	// to ScanProducts and filter/sort client-side.
	ListProducts(ctx context.Context, accountID string) ([]domain.Product, error)
	// ScanProducts is the unindexed full scan used as the degraded path.
	ScanProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, accountID string, productID string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, accountID string, productID string, update domain.ProductUpdateRequest) (*domain.Product, error)
	// DeleteProduct is not idempotent-on-retry: a second call fails with
	// ErrNotFound, which callers must treat as already satisfied.
	DeleteProduct(ctx context.Context, accountID string, productID string) error
	AdjustProductQuantity(ctx context.Context, accountID string, productID string, delta int) error

	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, accountID string, billID string) (*domain.Bill, error)
	ListBills(ctx context.Context, accountID string, limit int) ([]domain.Bill, error)

	TotalStockUnits(ctx context.Context, accountID string) (int, error)
	CountBills(ctx context.Context, accountID string) (int64, error)
	TotalSalesCents(ctx context.Context, accountID string) (int64, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
}
