package httpapi

import (
	"net/http"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/service"

	"go.uber.org/zap"
)

// ContactsHandler 联系表单
type ContactsHandler struct {
	svc    *service.ContactService
	logger *zap.Logger
}

func NewContactsHandler(svc *service.ContactService, logger *zap.Logger) *ContactsHandler {
	return &ContactsHandler{svc: svc, logger: logger}
}

type contactStatusRequest struct {
	Status domain.ContactStatus `json:"status"`
}

func (h *ContactsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/contact":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.submit(w, r)
		return
	case "/api/contacts":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w, r)
		return
	}

	parts := splitPath(r.URL.Path, "/api/contacts/")
	switch {
	case len(parts) == 1 && parts[0] == "export" && r.Method == http.MethodGet:
		data, err := h.svc.Export(r.Context())
		if err != nil {
			writeError(w, h.logger, "exporting contacts", err)
			return
		}
		writeExcel(w, "contacts.xlsx", data)
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.updateStatus(w, r, parts[0])
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

func (h *ContactsHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitContactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "submitting contact form", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Thank you for contacting us! We'll get back to you soon.", c))
}

func (h *ContactsHandler) list(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, "fetching contact submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(contacts))
}

func (h *ContactsHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req contactStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, h.logger, "updating contact status", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}
