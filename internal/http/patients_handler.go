package httpapi

import (
	"net/http"

	"mediroute-data/internal/service"

	"go.uber.org/zap"
)

// PatientsHandler 病人相关接口
//
//	POST /api/patient
//	GET  /api/patients/pending
//	GET  /api/patients/export?status=
//	GET  /api/patients/{id}
//	POST /api/patients/{id}/accept|decline|send
type PatientsHandler struct {
	svc    *service.PatientService
	logger *zap.Logger
}

func NewPatientsHandler(svc *service.PatientService, logger *zap.Logger) *PatientsHandler {
	return &PatientsHandler{svc: svc, logger: logger}
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *PatientsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/patient" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.submit(w, r)
		return
	}

	parts := splitPath(r.URL.Path, "/api/patients/")
	switch {
	case len(parts) == 1 && parts[0] == "pending":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.pending(w, r)
	case len(parts) == 1 && parts[0] == "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.export(w, r)
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.get(w, r, parts[0])
	case len(parts) == 2:
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		switch parts[1] {
		case "accept":
			h.accept(w, r, parts[0])
		case "decline":
			h.decline(w, r, parts[0])
		case "send":
			h.send(w, r, parts[0])
		default:
			writeJSON(w, http.StatusNotFound, Fail("not found"))
		}
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

func (h *PatientsHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitPatientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.Submit(r.Context(), req, nil)
	if err != nil {
		writeError(w, h.logger, "saving patient", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Patient details saved successfully!", p))
}

func (h *PatientsHandler) pending(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.GetPending(r.Context())
	if err != nil {
		writeError(w, h.logger, "loading pending patients", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(patients))
}

func (h *PatientsHandler) export(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportPatients(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.logger, "exporting patients", err)
		return
	}
	writeExcel(w, "patients.xlsx", data)
}

func (h *PatientsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "fetching patient", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *PatientsHandler) accept(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.svc.Accept(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "admitting patient", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Patient admitted", p))
}

func (h *PatientsHandler) decline(w http.ResponseWriter, r *http.Request, id string) {
	var req declineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.Decline(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, h.logger, "declining patient", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Patient declined", p))
}

func (h *PatientsHandler) send(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.svc.SendToHospital(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "sending patient to hospital", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Patient sent to hospital", p))
}
