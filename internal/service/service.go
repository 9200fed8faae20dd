package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"billquick/backend/internal/billing"
	"billquick/backend/internal/domain"
	"billquick/backend/internal/events"
	"billquick/backend/internal/insights"
	"billquick/backend/internal/inventory"
	"billquick/backend/internal/invoice"
	"billquick/backend/internal/store"
	"billquick/backend/internal/xid"
)

// ErrUnauthenticated is returned when a method requires an actor and the
// context carries none.
var ErrUnauthenticated = errors.New("authentication required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	registry  *inventory.Registry
	workflow  *billing.Workflow
	insights  *insights.Engine
	producer  events.Producer
	billLimit int
}

func New(repo store.Repository, registry *inventory.Registry, workflow *billing.Workflow, engine *insights.Engine, producer events.Producer, billLimit int) *Service {
	if producer == nil {
		producer = events.NoopProducer{}
	}
	if billLimit < 1 {
		billLimit = 200
	}

	return &Service{
		repo:      repo,
		registry:  registry,
		workflow:  workflow,
		insights:  engine,
		producer:  producer,
		billLimit: billLimit,
	}
}

func (s *Service) accountID(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.AccountID == "" {
		return "", ErrUnauthenticated
	}
	return actor.AccountID, nil
}

// ListProducts serves the account's catalog sorted by name. When the
// backing store reports a missing index it degrades to a full scan and
// reproduces the filter and ordering here, so the caller still gets a
// complete answer instead of an error.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, accountID)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, store.ErrIndexMissing) {
		return nil, err
	}

	log.Printf("[service] WARN: product index missing for account=%s, falling back to scan", accountID)
	all, scanErr := s.repo.ScanProducts(ctx)
	if scanErr != nil {
		return nil, scanErr
	}

	filtered := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.AccountID == accountID {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return strings.Compare(filtered[i].Name, filtered[j].Name) < 0
	})
	return filtered, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents < 0 || req.Quantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		AccountID:  accountID,
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.registry.For(accountID).Insert(*created)
	if err := s.producer.PublishProductCreated(ctx, events.ProductCreatedEvent{
		EventID:    xid.New("evt"),
		AccountID:  accountID,
		ProductID:  created.ID,
		Name:       created.Name,
		PriceCents: created.PriceCents,
		Quantity:   created.Quantity,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: publish product created: %v", err)
	}

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if productID == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateProduct(ctx, accountID, productID, req)
	if err != nil {
		return domain.Product{}, err
	}

	s.registry.For(accountID).Replace(*updated)
	return *updated, nil
}

// DeleteProduct removes a product. A concurrent or repeated delete that
// finds the row already gone is treated as success: the desired state
// holds either way.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if productID == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteProduct(ctx, accountID, productID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	s.registry.For(accountID).Remove(productID)
	return nil
}

// CreateBill runs the billing workflow and publishes the resulting
// domain events. A partial inventory failure still yields the persisted
// bill; the response flags it so the caller can reconcile stock.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.BillCreateResponse, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.BillCreateResponse{}, err
	}

	bill, err := s.workflow.Submit(ctx, accountID, req.CustomerName, req.Items)

	var partial *billing.PartialInventoryError
	if err != nil && !errors.As(err, &partial) {
		return domain.BillCreateResponse{}, err
	}

	eventItems := make([]events.BillItem, 0, len(bill.Items))
	for _, item := range bill.Items {
		eventItems = append(eventItems, events.BillItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}
	if err := s.producer.PublishBillCreated(ctx, events.BillCreatedEvent{
		EventID:    xid.New("evt"),
		BillID:     bill.ID,
		AccountID:  accountID,
		TotalCents: bill.TotalCents,
		Items:      eventItems,
		Partial:    partial != nil,
		Timestamp:  bill.CreatedAt,
	}); err != nil {
		log.Printf("[service] WARN: publish bill created: %v", err)
	}

	failed := make(map[string]bool)
	if partial != nil {
		for _, f := range partial.Failures {
			failed[f.ProductID] = true
		}
	}
	for _, item := range bill.Items {
		if failed[item.ProductID] {
			continue
		}
		if err := s.producer.PublishStockAdjusted(ctx, events.StockAdjustedEvent{
			EventID:   xid.New("evt"),
			AccountID: accountID,
			ProductID: item.ProductID,
			Delta:     -item.Quantity,
			Reason:    "bill:" + bill.ID,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			log.Printf("[service] WARN: publish stock adjusted: %v", err)
		}
	}

	resp := domain.BillCreateResponse{Bill: *bill}
	if partial != nil {
		resp.Partial = true
		resp.Warning = partial.Error()
		log.Printf("[service] WARN: bill %s saved with %d unsettled inventory adjustments", bill.ID, len(partial.Failures))
	}
	return resp, nil
}

func (s *Service) ListBills(ctx context.Context, limit int) (domain.BillListResponse, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.BillListResponse{}, err
	}
	if limit < 1 {
		limit = s.billLimit
	}

	bills, err := s.repo.ListBills(ctx, accountID, limit)
	if err != nil {
		return domain.BillListResponse{}, err
	}
	return domain.BillListResponse{Bills: bills}, nil
}

func (s *Service) Invoice(ctx context.Context, billID string) (invoice.Artifact, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return invoice.Artifact{}, err
	}
	if billID == "" {
		return invoice.Artifact{}, store.ErrInvalidInput
	}

	bill, err := s.repo.GetBill(ctx, accountID, billID)
	if err != nil {
		return invoice.Artifact{}, err
	}
	return invoice.Render(*bill), nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	totalSales, err := s.repo.TotalSalesCents(ctx, accountID)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	billCount, err := s.repo.CountBills(ctx, accountID)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	stockUnits, err := s.repo.TotalStockUnits(ctx, accountID)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	return domain.DashboardStats{
		TotalSalesCents: totalSales,
		BillCount:       billCount,
		StockUnits:      stockUnits,
	}, nil
}

func (s *Service) Insights(ctx context.Context) (domain.Insights, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.Insights{}, err
	}

	bills, err := s.repo.ListBills(ctx, accountID, s.billLimit)
	if err != nil {
		return domain.Insights{}, err
	}

	return s.insights.Generate(ctx, accountID, bills)
}

// EvictCache drops the account's inventory cache. Called on logout so the
// next session starts from Empty.
func (s *Service) EvictCache(accountID string) {
	s.registry.Evict(accountID)
}
