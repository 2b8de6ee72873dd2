package httpapi

import (
	"net/http"

	"ledgerdesk/backend/internal/domain"
)

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	emp, err := a.service.CreateEmployee(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (a *API) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	emp, err := a.service.GetEmployee(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req domain.EmployeeUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	emp, err := a.service.UpdateEmployee(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteEmployee(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateEmployeePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	payment, err := a.service.CreateEmployeePayment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (a *API) handleEmployeePayments(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	payments, total, err := a.service.ListEmployeePayments(r.Context(), page)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(payments, total, page))
}

func (a *API) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	contractorID, err := parseOptionalID(r.URL.Query().Get("contractorId"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	employeeID, err := parseOptionalID(r.URL.Query().Get("employeeId"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	appointments, err := a.service.ListAppointments(r.Context(), domain.AppointmentFilter{
		From:         from,
		To:           to,
		ContractorID: contractorID,
		EmployeeID:   employeeID,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if appointments == nil {
		appointments = []domain.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (a *API) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req domain.AppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	appt, err := a.service.CreateAppointment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (a *API) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	appt, err := a.service.GetAppointment(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req domain.AppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	appt, err := a.service.UpdateAppointment(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteAppointment(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.BusinessSettings(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.BusinessSettings
	if err := decodeJSON(r, &settings); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	saved, err := a.service.SaveBusinessSettings(r.Context(), settings)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
