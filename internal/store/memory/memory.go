package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"billquick/backend/internal/domain"
	"billquick/backend/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	productsByID map[string]domain.Product
	billsByID    map[string]domain.Bill
	billOrder    []string
	usersByEmail map[string]domain.UserAccount
}

const demoAccountID = "acct-demo"

// seedUsers builds the initial in-memory account for dev/demo mode. The
// password is read from SEED_OWNER_PASSWORD; if unset, a hardcoded dev
// default is used with a warning printed to stdout. The in-memory store is
// never used in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(ownerPwd), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	return map[string]domain.UserAccount{
		"owner@demo.shop": {
			ID:        demoAccountID,
			Email:     "owner@demo.shop",
			Password:  string(hash),
			CreatedAt: time.Now().UTC(),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	products := []domain.Product{
		{Name: "Basmati Rice 5kg", PriceCents: 54900, Quantity: 40},
		{Name: "Sunflower Oil 1L", PriceCents: 16500, Quantity: 60},
		{Name: "Toor Dal 1kg", PriceCents: 14200, Quantity: 55},
		{Name: "Wheat Flour 5kg", PriceCents: 24500, Quantity: 35},
		{Name: "Sugar 1kg", PriceCents: 4600, Quantity: 80},
		{Name: "Tea Powder 250g", PriceCents: 12800, Quantity: 45},
		{Name: "Milk 500ml", PriceCents: 2800, Quantity: 120},
		{Name: "Bath Soap", PriceCents: 3400, Quantity: 90},
		{Name: "Detergent 1kg", PriceCents: 11500, Quantity: 50},
		{Name: "Biscuits Pack", PriceCents: 3000, Quantity: 100},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.ID = uuid.NewString()
		p.AccountID = demoAccountID
		productMap[p.ID] = p
	}

	return &Store{
		productsByID: productMap,
		billsByID:    make(map[string]domain.Bill),
		billOrder:    make([]string, 0, 64),
		usersByEmail: seedUsers(),
	}
}

// New returns an empty store. Used by tests that need a clean slate.
func New() *Store {
	return &Store{
		productsByID: make(map[string]domain.Product),
		billsByID:    make(map[string]domain.Bill),
		billOrder:    make([]string, 0, 16),
		usersByEmail: make(map[string]domain.UserAccount),
	}
}

func (s *Store) ListProducts(_ context.Context, accountID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if p.AccountID != accountID {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})

	return products, nil
}

func (s *Store) ScanProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.AccountID == "" || product.Name == "" || product.PriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, accountID string, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[productID]
	if !exists || product.AccountID != accountID {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, accountID string, productID string, update domain.ProductUpdateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.AccountID != accountID {
		return nil, store.ErrNotFound
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, store.ErrInvalidInput
		}
		product.Name = strings.TrimSpace(*update.Name)
	}
	if update.PriceCents != nil {
		if *update.PriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product.PriceCents = *update.PriceCents
	}
	if update.Quantity != nil {
		if *update.Quantity < 0 {
			return nil, store.ErrInvalidInput
		}
		product.Quantity = *update.Quantity
	}

	s.productsByID[productID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, accountID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.AccountID != accountID {
		return store.ErrNotFound
	}
	delete(s.productsByID, productID)
	return nil
}

// AdjustProductQuantity applies a signed delta with no clamp: a concurrent
// oversell can drive the quantity negative, matching the store primitive's
// contract. The caller is responsible for prior validation.
func (s *Store) AdjustProductQuantity(_ context.Context, accountID string, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.AccountID != accountID {
		return store.ErrNotFound
	}
	product.Quantity += delta
	s.productsByID[productID] = product
	return nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.AccountID == "" || len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.ID == "" {
		bill.ID = uuid.NewString()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	bill.Items = slices.Clone(bill.Items)

	s.billsByID[bill.ID] = bill
	s.billOrder = append(s.billOrder, bill.ID)
	created := cloneBill(bill)
	return &created, nil
}

func (s *Store) GetBill(_ context.Context, accountID string, billID string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, exists := s.billsByID[billID]
	if !exists || bill.AccountID != accountID {
		return nil, store.ErrNotFound
	}
	copyBill := cloneBill(bill)
	return &copyBill, nil
}

func (s *Store) ListBills(_ context.Context, accountID string, limit int) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]domain.Bill, 0, len(s.billOrder))
	for i := len(s.billOrder) - 1; i >= 0; i-- {
		bill := s.billsByID[s.billOrder[i]]
		if bill.AccountID != accountID {
			continue
		}
		bills = append(bills, cloneBill(bill))
		if limit > 0 && len(bills) == limit {
			break
		}
	}

	slices.SortStableFunc(bills, func(a, b domain.Bill) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return bills, nil
}

func (s *Store) TotalStockUnits(_ context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, p := range s.productsByID {
		if p.AccountID == accountID {
			total += p.Quantity
		}
	}
	return total, nil
}

func (s *Store) CountBills(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := int64(0)
	for _, bill := range s.billsByID {
		if bill.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (s *Store) TotalSalesCents(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(0)
	for _, bill := range s.billsByID {
		if bill.AccountID == accountID {
			total += bill.TotalCents
		}
	}
	return total, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByEmail[user.Email] = user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByEmail[email]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func cloneBill(bill domain.Bill) domain.Bill {
	out := bill
	out.Items = slices.Clone(bill.Items)
	return out
}
