package service

import (
	"context"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/report"
	"ledgerdesk/backend/internal/store"
)

// SalesReport collects every sale in the range, newest first, with the
// business header used on exported documents.
func (s *Service) SalesReport(ctx context.Context, filter domain.SalesFilter) (report.SalesReport, error) {
	filter.Limit, filter.Offset = 0, 0
	if filter.From != nil {
		from := ledgerTime(*filter.From)
		filter.From = &from
	}
	if filter.To != nil {
		to := ledgerTime(*filter.To)
		filter.To = &to
	}

	out := report.SalesReport{Title: "Sales Report", From: filter.From, To: filter.To}
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		out.Rows, _, err = tx.ListSales(ctx, filter)
		if err != nil {
			return err
		}
		out.Metadata, err = tx.GetBusinessSettings(ctx)
		return err
	})
	return out, err
}
