package domain

import "time"

// Product is the authoritative inventory record for one account.
type Product struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type ProductCreateRequest struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
}

// BillItem denormalizes product name and price at the time of sale so
// later product edits never alter historical bills.
type BillItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// Bill is immutable once persisted. There is no update or delete path.
type Bill struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	CustomerName string     `json:"customer_name"`
	Items        []BillItem `json:"items"`
	TotalCents   int64      `json:"total_cents"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BillItemSelection is one cart line as submitted by the client.
type BillItemSelection struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type BillCreateRequest struct {
	CustomerName string              `json:"customer_name"`
	Items        []BillItemSelection `json:"items"`
}

type BillCreateResponse struct {
	Bill    Bill   `json:"bill"`
	Partial bool   `json:"partial"`
	Warning string `json:"warning,omitempty"`
}

type BillListResponse struct {
	Bills []Bill `json:"bills"`
}

type DashboardStats struct {
	TotalSalesCents int64 `json:"total_sales_cents"`
	BillCount       int64 `json:"bill_count"`
	StockUnits      int   `json:"stock_units"`
}

type Insights struct {
	TopSellingItems []string `json:"top_selling_items"`
	SummaryReport   string   `json:"summary_report"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated principal attached to a request context.
type Actor struct {
	AccountID string
	Email     string
}

// UserAccount is an internal persistence model for auth credentials.
// Password holds the bcrypt hash, never the plaintext.
type UserAccount struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

const DefaultCustomerName = "Walk-in Customer"
