package httpapi

import (
	"net/http"

	"mediroute-data/internal/service"

	"go.uber.org/zap"
)

// NotificationsHandler
//
//	GET  /api/notifications/{email}
//	GET  /api/notifications/{email}/count
//	POST /api/notifications/{id}/read
type NotificationsHandler struct {
	svc    *service.MailboxService
	logger *zap.Logger
}

func NewNotificationsHandler(svc *service.MailboxService, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{svc: svc, logger: logger}
}

func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/notifications/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		list, err := h.svc.UnreadFor(r.Context(), parts[0])
		if err != nil {
			writeError(w, h.logger, "fetching notifications", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(list))
	case len(parts) == 2 && parts[1] == "count" && r.Method == http.MethodGet:
		n, err := h.svc.UnreadCount(r.Context(), parts[0])
		if err != nil {
			writeError(w, h.logger, "counting notifications", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]int{"unread": n}))
	case len(parts) == 2 && parts[1] == "read" && r.Method == http.MethodPost:
		n, err := h.svc.MarkRead(r.Context(), parts[0])
		if err != nil {
			writeError(w, h.logger, "updating notification", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(n))
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}
