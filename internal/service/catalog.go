package service

import (
	"context"
	"strings"

	"ledgerdesk/backend/internal/cache"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	var (
		products []domain.Product
		total    int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		products, total, err = tx.ListProducts(ctx, filter)
		return err
	})
	return products, total, err
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		return notFound("product", id, err)
	})
	return product, err
}

// CreateProduct adds a product; an opening quantity is recorded as a
// receiving at the inbound price.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Supplier = strings.TrimSpace(req.Supplier)
	if err := validate(req); err != nil {
		return domain.Product{}, err
	}

	now := s.now()
	product := domain.Product{
		Name:                 req.Name,
		SKU:                  req.SKU,
		Quantity:             req.Quantity,
		InboundPrice:         req.InboundPrice,
		OutboundPrice:        req.OutboundPrice,
		Supplier:             req.Supplier,
		CommissionPercentage: req.CommissionPercentage,
		LastUpdated:          now,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		id, err := tx.CreateProduct(ctx, product)
		if err != nil {
			return conflict("product name or sku", err)
		}
		product.ID = id
		if product.Quantity > 0 {
			_, err = tx.CreateReceiving(ctx, domain.ReceiveRecord{
				ProductID:    id,
				Quantity:     product.Quantity,
				PricePerUnit: product.InboundPrice,
				DateReceived: now,
			})
		}
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidate(ctx, cache.MetricsKey)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := validate(req); err != nil {
		return domain.Product{}, err
	}

	var product domain.Product
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		if err != nil {
			return notFound("product", id, err)
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalidField("name", "required")
			}
			product.Name = name
		}
		if req.InboundPrice != nil {
			product.InboundPrice = *req.InboundPrice
		}
		if req.OutboundPrice != nil {
			product.OutboundPrice = *req.OutboundPrice
		}
		if req.Supplier != nil {
			product.Supplier = strings.TrimSpace(*req.Supplier)
		}
		if req.CommissionPercentage != nil {
			product.CommissionPercentage = *req.CommissionPercentage
		}
		if product.OutboundPrice <= product.InboundPrice {
			return invalidField("outboundPrice", "gtfield")
		}
		product.LastUpdated = s.now()
		return conflict("product name", tx.UpdateProduct(ctx, product))
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidate(ctx, cache.MetricsKey)
	return product, nil
}

// ReceiveStock adds delivered units and moves the product's inbound price
// to the delivery price.
func (s *Service) ReceiveStock(ctx context.Context, req domain.ReceiveRequest) (domain.ReceiveRecord, error) {
	if err := validate(req); err != nil {
		return domain.ReceiveRecord{}, err
	}

	now := s.now()
	record := domain.ReceiveRecord{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		DateReceived: now,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		if err := tx.AdjustStock(ctx, req.ProductID, req.Quantity, now); err != nil {
			return notFound("product", req.ProductID, err)
		}
		product, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		product.InboundPrice = req.PricePerUnit
		product.LastUpdated = now
		if err := tx.UpdateProduct(ctx, product); err != nil {
			return err
		}
		record.ProductName = product.Name
		record.ID, err = tx.CreateReceiving(ctx, record)
		return err
	})
	if err != nil {
		return domain.ReceiveRecord{}, err
	}
	s.invalidate(ctx, cache.MetricsKey)
	return record, nil
}

func (s *Service) ListReceiving(ctx context.Context, page domain.Page) ([]domain.ReceiveRecord, int, error) {
	var (
		records []domain.ReceiveRecord
		total   int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		records, total, err = tx.ListReceiving(ctx, page)
		return err
	})
	return records, total, err
}

// ProcessReturn puts returned units back on the shelf. The refund may not
// exceed what the units sell for at the current outbound price.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.ReturnRecord, error) {
	if err := validate(req); err != nil {
		return domain.ReturnRecord{}, err
	}

	now := s.now()
	record := domain.ReturnRecord{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		ReturnAmount: req.ReturnAmount,
		DateReturned: now,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		product, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return notFound("product", req.ProductID, err)
		}
		maxRefund := product.OutboundPrice * float64(req.Quantity)
		if req.ReturnAmount > maxRefund {
			return ruleError(ReasonExceedsOriginalPrice, "return amount %.2f exceeds original price %.2f", req.ReturnAmount, maxRefund)
		}
		if err := tx.AdjustStock(ctx, product.ID, req.Quantity, now); err != nil {
			return err
		}
		record.ProductName = product.Name
		record.ID, err = tx.CreateReturn(ctx, record)
		return err
	})
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	s.invalidate(ctx, cache.MetricsKey)
	return record, nil
}

func (s *Service) ListReturns(ctx context.Context, page domain.Page) ([]domain.ReturnRecord, int, error) {
	var (
		records []domain.ReturnRecord
		total   int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		records, total, err = tx.ListReturns(ctx, page)
		return err
	})
	return records, total, err
}

func (s *Service) Metrics(ctx context.Context) (domain.Metrics, error) {
	return cachedRead(ctx, s, cache.MetricsKey, func(tx store.Tx) (domain.Metrics, error) {
		return tx.GetMetrics(ctx)
	})
}

func (s *Service) ListServices(ctx context.Context, page domain.Page) ([]domain.Service, int, error) {
	var (
		services []domain.Service
		total    int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		services, total, err = tx.ListServices(ctx, page)
		return err
	})
	return services, total, err
}

func (s *Service) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var svc domain.Service
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		svc, err = tx.GetService(ctx, id)
		return notFound("service", id, err)
	})
	return svc, err
}

func (s *Service) CreateService(ctx context.Context, req domain.ServiceCreateRequest) (domain.Service, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate(req); err != nil {
		return domain.Service{}, err
	}

	svc := domain.Service{
		Name:                 req.Name,
		Description:          req.Description,
		BasePrice:            req.BasePrice,
		CommissionPercentage: req.CommissionPercentage,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		id, err := tx.CreateService(ctx, svc)
		if err != nil {
			return conflict("service name", err)
		}
		svc.ID = id
		return nil
	})
	if err != nil {
		return domain.Service{}, err
	}
	return svc, nil
}

// DeleteService refuses services that appear in the ledger.
func (s *Service) DeleteService(ctx context.Context, id int64) error {
	return s.repo.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetService(ctx, id); err != nil {
			return notFound("service", id, err)
		}
		n, err := tx.CountServiceHistory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleError(ReasonHasHistory, "service has %d recorded sales and cannot be deleted", n)
		}
		return tx.DeleteService(ctx, id)
	})
}

func (s *Service) ServiceHistory(ctx context.Context, id int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	var (
		records []domain.ServiceRecord
		total   int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetService(ctx, id); err != nil {
			return notFound("service", id, err)
		}
		var err error
		records, total, err = tx.ListServiceHistory(ctx, id, page)
		return err
	})
	return records, total, err
}
