package service

import (
	"context"
	"strings"

	"ledgerdesk/backend/internal/cache"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func (s *Service) ListContractors(ctx context.Context) ([]domain.Contractor, error) {
	var contractors []domain.Contractor
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		contractors, err = tx.ListContractors(ctx)
		return err
	})
	return contractors, err
}

func (s *Service) GetContractor(ctx context.Context, id int64) (domain.Contractor, error) {
	var c domain.Contractor
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetContractor(ctx, id)
		return notFound("contractor", id, err)
	})
	return c, err
}

func (s *Service) CreateContractor(ctx context.Context, req domain.ContractorCreateRequest) (domain.Contractor, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return domain.Contractor{}, err
	}

	c := domain.Contractor{
		Name:                  req.Name,
		LocationFeePercentage: req.LocationFeePercentage,
		StartDate:             s.now(),
		IsActive:              true,
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		id, err := tx.CreateContractor(ctx, c)
		if err != nil {
			return conflict("contractor name", err)
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return domain.Contractor{}, err
	}
	return c, nil
}

// UpdateContractorFee changes the fee for future sales only; recorded
// splits keep the fee they were written with.
func (s *Service) UpdateContractorFee(ctx context.Context, id int64, req domain.ContractorUpdateRequest) (domain.Contractor, error) {
	if err := validate(req); err != nil {
		return domain.Contractor{}, err
	}
	var c domain.Contractor
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		if err := tx.UpdateContractorFee(ctx, id, req.LocationFeePercentage); err != nil {
			return notFound("contractor", id, err)
		}
		var err error
		c, err = tx.GetContractor(ctx, id)
		return err
	})
	return c, err
}

func (s *Service) SetContractorActive(ctx context.Context, id int64, req domain.StatusRequest) (domain.Contractor, error) {
	if err := validate(req); err != nil {
		return domain.Contractor{}, err
	}
	var c domain.Contractor
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		if err := tx.SetContractorActive(ctx, id, *req.IsActive); err != nil {
			return notFound("contractor", id, err)
		}
		var err error
		c, err = tx.GetContractor(ctx, id)
		return err
	})
	return c, err
}

// DeleteContractor refuses contractors that are still owed money or appear
// in the ledger.
func (s *Service) DeleteContractor(ctx context.Context, id int64) error {
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		c, err := tx.GetContractor(ctx, id)
		if err != nil {
			return notFound("contractor", id, err)
		}
		if c.AccumulatedCommission > 0 {
			return ruleError(ReasonUnpaidBalance, "contractor %s has an unpaid balance of %.2f", c.Name, c.AccumulatedCommission)
		}
		n, err := tx.CountContractorHistory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleError(ReasonHasHistory, "contractor %s has %d recorded sales and cannot be deleted", c.Name, n)
		}
		return tx.DeleteContractor(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.ContractorEarningsKey(id))
	return nil
}

// UnpaidSales lists the contractor's ledger rows without a payment, newest
// first. Each id is accepted by PayContractor.
func (s *Service) UnpaidSales(ctx context.Context, contractorID int64) ([]domain.UnpaidSale, error) {
	var unpaid []domain.UnpaidSale
	err := s.repo.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetContractor(ctx, contractorID); err != nil {
			return notFound("contractor", contractorID, err)
		}
		var err error
		unpaid, err = tx.ListUnpaidSales(ctx, contractorID)
		return err
	})
	return unpaid, err
}

func (s *Service) ContractorEarnings(ctx context.Context, contractorID int64) (domain.ContractorEarnings, error) {
	return cachedRead(ctx, s, cache.ContractorEarningsKey(contractorID), func(tx store.Tx) (domain.ContractorEarnings, error) {
		if _, err := tx.GetContractor(ctx, contractorID); err != nil {
			return domain.ContractorEarnings{}, notFound("contractor", contractorID, err)
		}
		return tx.GetContractorEarnings(ctx, contractorID)
	})
}

func (s *Service) ContractorServices(ctx context.Context, contractorID int64, page domain.Page) ([]domain.ServiceRecord, int, error) {
	var (
		records []domain.ServiceRecord
		total   int
	)
	err := s.repo.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetContractor(ctx, contractorID); err != nil {
			return notFound("contractor", contractorID, err)
		}
		var err error
		records, total, err = tx.ListContractorServiceHistory(ctx, contractorID, page)
		return err
	})
	return records, total, err
}
