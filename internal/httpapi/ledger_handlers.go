package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/report"
)

func (a *API) handleProcessSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.ProcessSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	page := parsePage(r)
	sales, total, err := a.service.ListSales(r.Context(), domain.SalesFilter{From: from, To: to, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(sales, total, page))
}

func (a *API) handleSoldProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListSoldProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handlePayContractor(w http.ResponseWriter, r *http.Request) {
	var req domain.ContractorPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.PayContractor(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleContractorPayments(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	entries, total, err := a.service.ListContractorPayments(r.Context(), page)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(entries, total, page))
}

func (a *API) handleListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := a.service.ListContractors(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractors)
}

func (a *API) handleCreateContractor(w http.ResponseWriter, r *http.Request) {
	var req domain.ContractorCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	contractor, err := a.service.CreateContractor(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contractor)
}

func (a *API) handleGetContractor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	contractor, err := a.service.GetContractor(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractor)
}

func (a *API) handleUpdateContractor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req domain.ContractorUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	contractor, err := a.service.UpdateContractorFee(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractor)
}

func (a *API) handleContractorStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req domain.StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	contractor, err := a.service.SetContractorActive(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractor)
}

func (a *API) handleDeleteContractor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteContractor(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUnpaidSales(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	unpaid, err := a.service.UnpaidSales(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if unpaid == nil {
		unpaid = []domain.UnpaidSale{}
	}
	writeJSON(w, http.StatusOK, unpaid)
}

func (a *API) handleContractorEarnings(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	earnings, err := a.service.ContractorEarnings(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

func (a *API) handleContractorServices(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	page := parsePage(r)
	records, total, err := a.service.ContractorServices(r.Context(), id, page)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(records, total, page))
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := a.service.Metrics(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = report.FormatCSV
	}
	if format != report.FormatCSV && format != report.FormatPDF {
		a.writeError(w, r, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	salesReport, err := a.service.SalesReport(r.Context(), domain.SalesFilter{From: from, To: to})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case report.FormatPDF:
		out, err := report.RenderPDF(salesReport)
		if err != nil {
			a.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		buf.Write(out)
		contentType = "application/pdf"
	default:
		if err := report.WriteCSV(&buf, salesReport); err != nil {
			a.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		contentType = "text/csv; charset=utf-8"
	}

	filename := fmt.Sprintf("sales-report-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
