package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ledgerdesk/backend/internal/commission"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

// ProcessSale records one sale batch atomically. Product lines are written
// first, then service lines; any failure discards the whole batch.
//
// Product commissions go to the batch contractor: the first service line
// that names one. Service earnings go to the contractor named on the line.
func (s *Service) ProcessSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	if err := validate(req); err != nil {
		return domain.SaleResponse{}, err
	}
	if len(req.Products) == 0 && len(req.Services) == 0 {
		return domain.SaleResponse{}, ruleError(ReasonEmptySale, "sale has no product or service lines")
	}

	batchContractorID := batchContractor(req.Services)
	now := s.now()
	saleIDs := make([]int64, 0, len(req.Products)+len(req.Services))
	var credited []int64

	err := s.repo.Update(ctx, func(tx store.Tx) error {
		saleIDs = saleIDs[:0]
		credits := make(map[int64]float64)
		contractors := make(map[int64]domain.Contractor)

		lookupContractor := func(id int64) (domain.Contractor, error) {
			if c, ok := contractors[id]; ok {
				return c, nil
			}
			c, err := tx.GetContractor(ctx, id)
			if err != nil {
				return domain.Contractor{}, notFound("contractor", id, err)
			}
			if !c.IsActive {
				return domain.Contractor{}, ruleError(ReasonContractorInactive, "contractor %s is inactive", c.Name)
			}
			contractors[id] = c
			return c, nil
		}

		if batchContractorID != nil {
			if _, err := lookupContractor(*batchContractorID); err != nil {
				return err
			}
		}

		for _, line := range req.Products {
			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return notFound("product", line.ProductID, err)
			}
			if product.Quantity < line.Quantity {
				return ruleError(ReasonInsufficientStock, "insufficient stock for product %s: %d available", product.Name, product.Quantity)
			}

			split := s.calc.Product(commission.ProductLine{
				InboundPrice:         product.InboundPrice,
				OutboundPrice:        product.OutboundPrice,
				CommissionPercentage: product.CommissionPercentage,
				Quantity:             line.Quantity,
				HasContractor:        batchContractorID != nil,
			})

			if err := tx.AdjustStock(ctx, product.ID, -line.Quantity, now); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					return ruleError(ReasonInsufficientStock, "insufficient stock for product %s", product.Name)
				}
				return err
			}

			productID := product.ID
			saleID, err := tx.InsertSale(ctx, domain.SaleRecord{
				ProductID:            &productID,
				Quantity:             line.Quantity,
				InboundPricePerUnit:  product.InboundPrice,
				OutboundPricePerUnit: product.OutboundPrice,
				TotalValue:           split.TotalValue,
				NetProfit:            split.NetProfit,
				ContractorID:         batchContractorID,
				ContractorEarnings:   split.ContractorEarnings,
				DateSold:             now,
			})
			if err != nil {
				return err
			}
			saleIDs = append(saleIDs, saleID)
			if batchContractorID != nil && split.ContractorEarnings > 0 {
				credits[*batchContractorID] += split.ContractorEarnings
			}
		}

		for _, line := range req.Services {
			svc, err := tx.GetService(ctx, line.ServiceID)
			if err != nil {
				return notFound("service", line.ServiceID, err)
			}

			serviceLine := commission.ServiceLine{BasePrice: svc.BasePrice}
			if line.ContractorID != nil {
				c, err := lookupContractor(*line.ContractorID)
				if err != nil {
					return err
				}
				serviceLine.LocationFeePercentage = c.LocationFeePercentage
				serviceLine.HasContractor = true
			}
			split := s.calc.Service(serviceLine)

			serviceID := svc.ID
			saleID, err := tx.InsertSale(ctx, domain.SaleRecord{
				ServiceID:            &serviceID,
				Quantity:             1,
				OutboundPricePerUnit: svc.BasePrice,
				TotalValue:           split.TotalValue,
				NetProfit:            split.BusinessEarnings,
				ContractorID:         line.ContractorID,
				ContractorEarnings:   split.ContractorEarnings,
				DateSold:             now,
			})
			if err != nil {
				return err
			}
			if _, err := tx.InsertServiceRecord(ctx, domain.ServiceRecord{
				SaleID:             saleID,
				ServiceID:          svc.ID,
				ContractorID:       line.ContractorID,
				ClientName:         line.ClientName,
				PriceCharged:       split.TotalValue,
				BusinessEarnings:   split.BusinessEarnings,
				ContractorEarnings: split.ContractorEarnings,
				DatePerformed:      now,
				Notes:              line.Notes,
			}); err != nil {
				return err
			}
			saleIDs = append(saleIDs, saleID)
			if line.ContractorID != nil && split.ContractorEarnings > 0 {
				credits[*line.ContractorID] += split.ContractorEarnings
			}
		}

		credited = sortedKeys(credits)
		for _, id := range credited {
			if err := tx.AddAccumulatedCommission(ctx, id, credits[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.invalidateContractors(ctx, credited...)
	s.logger.Info("sale recorded",
		zap.Int("products", len(req.Products)),
		zap.Int("services", len(req.Services)),
		zap.Int64s("sale_ids", saleIDs),
	)
	return domain.SaleResponse{Success: true, SaleIDs: saleIDs}, nil
}

func batchContractor(lines []domain.SaleServiceLine) *int64 {
	for _, line := range lines {
		if line.ContractorID != nil {
			id := *line.ContractorID
			return &id
		}
	}
	return nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SalesFilter) ([]domain.SaleListEntry, int, error) {
	if filter.From != nil {
		from := ledgerTime(*filter.From)
		filter.From = &from
	}
	if filter.To != nil {
		to := ledgerTime(*filter.To)
		filter.To = &to
	}
	var (
		sales []domain.SaleListEntry
		total int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		sales, total, err = tx.ListSales(ctx, filter)
		return err
	})
	return sales, total, err
}

func (s *Service) ListSoldProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		products, err = tx.ListSoldProducts(ctx)
		return err
	})
	return products, err
}
