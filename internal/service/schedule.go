package service

import (
	"context"
	"strings"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

func (s *Service) ListAppointments(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	if filter.From != nil {
		from := ledgerTime(*filter.From)
		filter.From = &from
	}
	if filter.To != nil {
		to := ledgerTime(*filter.To)
		filter.To = &to
	}
	var appointments []domain.Appointment
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		appointments, err = tx.ListAppointments(ctx, filter)
		return err
	})
	return appointments, err
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (domain.Appointment, error) {
	var appt domain.Appointment
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		appt, err = tx.GetAppointment(ctx, id)
		return notFound("appointment", id, err)
	})
	return appt, err
}

// CreateAppointment books a slot for the acting user. The contractor and the
// employee may each hold only one appointment at a time.
func (s *Service) CreateAppointment(ctx context.Context, req domain.AppointmentRequest) (domain.Appointment, error) {
	appt, err := s.appointmentFromRequest(req)
	if err != nil {
		return domain.Appointment{}, err
	}
	if actor, ok := ActorFromContext(ctx); ok {
		appt.CreatedBy = actor.UserID
	}
	appt.CreatedAt = s.now()

	err = s.repo.Update(ctx, func(tx store.Tx) error {
		if err := checkAppointmentRefs(ctx, tx, appt); err != nil {
			return err
		}
		if err := checkSlotFree(ctx, tx, appt); err != nil {
			return err
		}
		var err error
		appt.ID, err = tx.CreateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id int64, req domain.AppointmentRequest) (domain.Appointment, error) {
	changes, err := s.appointmentFromRequest(req)
	if err != nil {
		return domain.Appointment{}, err
	}

	var appt domain.Appointment
	err = s.repo.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return notFound("appointment", id, err)
		}
		changes.ID = existing.ID
		changes.CreatedBy = existing.CreatedBy
		changes.CreatedAt = existing.CreatedAt
		if err := checkAppointmentRefs(ctx, tx, changes); err != nil {
			return err
		}
		if err := checkSlotFree(ctx, tx, changes); err != nil {
			return err
		}
		if err := tx.UpdateAppointment(ctx, changes); err != nil {
			return err
		}
		appt = changes
		return nil
	})
	return appt, err
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	return s.repo.Update(ctx, func(tx store.Tx) error {
		return notFound("appointment", id, tx.DeleteAppointment(ctx, id))
	})
}

func (s *Service) appointmentFromRequest(req domain.AppointmentRequest) (domain.Appointment, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.ClientName = strings.TrimSpace(req.ClientName)
	if err := validate(req); err != nil {
		return domain.Appointment{}, err
	}
	start, end := ledgerTime(req.StartTime), ledgerTime(req.EndTime)
	if !end.After(start) {
		return domain.Appointment{}, invalidField("end_time", "gtfield")
	}
	return domain.Appointment{
		Title:        req.Title,
		StartTime:    start,
		EndTime:      end,
		Notes:        strings.TrimSpace(req.Notes),
		ContractorID: req.ContractorID,
		EmployeeID:   req.EmployeeID,
		ClientName:   req.ClientName,
		ServiceID:    req.ServiceID,
	}, nil
}

func checkAppointmentRefs(ctx context.Context, tx store.Tx, appt domain.Appointment) error {
	if appt.ContractorID != nil {
		if _, err := tx.GetContractor(ctx, *appt.ContractorID); err != nil {
			return notFound("contractor", *appt.ContractorID, err)
		}
	}
	if appt.EmployeeID != nil {
		if _, err := tx.GetEmployee(ctx, *appt.EmployeeID); err != nil {
			return notFound("employee", *appt.EmployeeID, err)
		}
	}
	if appt.ServiceID != nil {
		if _, err := tx.GetService(ctx, *appt.ServiceID); err != nil {
			return notFound("service", *appt.ServiceID, err)
		}
	}
	return nil
}

func checkSlotFree(ctx context.Context, tx store.Tx, appt domain.Appointment) error {
	n, err := tx.CountOverlappingAppointments(ctx, appt.ContractorID, appt.EmployeeID, appt.StartTime, appt.EndTime, appt.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ruleError(ReasonTimeSlotBooked, "time slot is already booked")
	}
	return nil
}

func (s *Service) BusinessSettings(ctx context.Context) (domain.BusinessSettings, error) {
	var settings domain.BusinessSettings
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		settings, err = tx.GetBusinessSettings(ctx)
		return err
	})
	return settings, err
}

func (s *Service) SaveBusinessSettings(ctx context.Context, settings domain.BusinessSettings) (domain.BusinessSettings, error) {
	settings.Name = strings.TrimSpace(settings.Name)
	settings.Email = strings.TrimSpace(settings.Email)
	if err := validate(settings); err != nil {
		return domain.BusinessSettings{}, err
	}
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		return tx.SaveBusinessSettings(ctx, settings)
	})
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	return settings, nil
}
