package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// HTTPOrderService looks orders up from the order service over HTTP.
type HTTPOrderService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPOrderService(baseURL string) *HTTPOrderService {
	return &HTTPOrderService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (s *HTTPOrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	url := fmt.Sprintf("%s/orders/%s", s.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "build order lookup for '%s'", orderID)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "look up order '%s'", orderID)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return models.Order{}, engine.ErrOrderNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.Order{}, errors.Errorf("order service returned %d for order '%s'", resp.StatusCode, orderID)
	}
	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return models.Order{}, errors.Wrapf(err, "decode order '%s'", orderID)
	}
	return order, nil
}

// StaticOrderService serves orders from memory. Used by examples and by
// the serve command when no order service endpoint is configured.
type StaticOrderService struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

func NewStaticOrderService() *StaticOrderService {
	return &StaticOrderService{orders: make(map[string]models.Order)}
}

func (s *StaticOrderService) Add(order models.Order) {
	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()
}

func (s *StaticOrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	s.mu.RLock()
	order, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return models.Order{}, engine.ErrOrderNotFound
	}
	return order, nil
}

// PermissiveOrderService accepts any order id, fabricating a minimal
// single-item order. Demo use only: it removes the structural validation
// gate entirely.
type PermissiveOrderService struct{}

func (PermissiveOrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	return models.Order{
		ID:         orderID,
		CustomerID: "unknown",
		Items:      []models.OrderItem{{ProductID: "unspecified", Quantity: 1}},
	}, nil
}

var _ engine.OrderService = (*HTTPOrderService)(nil)
var _ engine.OrderService = (*StaticOrderService)(nil)
var _ engine.OrderService = PermissiveOrderService{}
