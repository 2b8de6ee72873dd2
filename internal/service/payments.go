package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

// PayContractor settles the requested ledger rows of one contractor. Ids
// that do not belong to the contractor are skipped. The contractor's
// accumulated commission is reset to zero even when only part of the unpaid
// rows were selected; a row that already has a payment aborts the unit.
func (s *Service) PayContractor(ctx context.Context, req domain.ContractorPaymentRequest) (domain.ContractorPaymentResponse, error) {
	if err := validate(req); err != nil {
		return domain.ContractorPaymentResponse{}, err
	}

	saleIDs := slices.Clone(req.SaleIDs)
	slices.Sort(saleIDs)
	saleIDs = slices.Compact(saleIDs)

	now := s.now()
	resp := domain.ContractorPaymentResponse{Success: true}

	err := s.repo.Update(ctx, func(tx store.Tx) error {
		resp.PaidSaleIDs = make([]int64, 0, len(saleIDs))
		resp.TotalPaid = 0

		if _, err := tx.GetContractor(ctx, req.ContractorID); err != nil {
			return notFound("contractor", req.ContractorID, err)
		}

		payable, err := tx.ListPayableSales(ctx, req.ContractorID, saleIDs)
		if err != nil {
			return err
		}

		for _, row := range payable {
			_, err := tx.InsertContractorPayment(ctx, domain.ContractorPayment{
				ContractorID:       req.ContractorID,
				SaleID:             row.SaleID,
				ContractorEarnings: row.ContractorEarnings,
				BusinessEarnings:   row.BusinessEarnings,
				PaymentDate:        now,
			})
			if errors.Is(err, store.ErrAlreadyPaid) {
				return ruleError(ReasonAlreadyPaid, "sale %d is already paid", row.SaleID)
			}
			if err != nil {
				return err
			}
			resp.PaidSaleIDs = append(resp.PaidSaleIDs, row.SaleID)
			resp.TotalPaid += row.ContractorEarnings
		}

		return tx.ResetAccumulatedCommission(ctx, req.ContractorID)
	})
	if err != nil {
		return domain.ContractorPaymentResponse{}, err
	}

	s.invalidateContractors(ctx, req.ContractorID)
	s.logger.Info("contractor paid",
		zap.Int64("contractor_id", req.ContractorID),
		zap.Int64s("sale_ids", resp.PaidSaleIDs),
		zap.Float64("total", resp.TotalPaid),
	)
	return resp, nil
}

func (s *Service) ListContractorPayments(ctx context.Context, page domain.Page) ([]domain.PaymentHistoryEntry, int, error) {
	var (
		entries []domain.PaymentHistoryEntry
		total   int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		entries, total, err = tx.ListContractorPayments(ctx, page)
		return err
	})
	return entries, total, err
}
