package httpapi

import (
	"net/http"

	"mediroute-data/internal/service"

	"go.uber.org/zap"
)

// DriversHandler /api/driver/{register,login,current}
type DriversHandler struct {
	svc    *service.DriverService
	logger *zap.Logger
}

func NewDriversHandler(svc *service.DriverService, logger *zap.Logger) *DriversHandler {
	return &DriversHandler{svc: svc, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type currentRequest struct {
	Email string `json:"email"`
}

func (h *DriversHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch r.URL.Path {
	case "/api/driver/register":
		h.register(w, r)
	case "/api/driver/login":
		h.login(w, r)
	case "/api/driver/current":
		h.current(w, r)
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

func (h *DriversHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterDriverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "registering driver", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Driver registered successfully!", d))
}

func (h *DriversHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, "logging in", err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Login successful", d))
}

func (h *DriversHandler) current(w http.ResponseWriter, r *http.Request) {
	var req currentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.Current(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, "fetching driver data", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(d))
}
