package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（metrics、静态文件等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.mux.ServeHTTP(w, req)
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func (r *Router) RegisterPatientRoutes(h *PatientsHandler) {
	r.HandleHandler("/api/patient", h)
	r.HandleHandler("/api/patients/", h)
}

func (r *Router) RegisterDriverRoutes(h *DriversHandler) {
	r.HandleHandler("/api/driver/", h)
}

func (r *Router) RegisterNotificationRoutes(h *NotificationsHandler) {
	r.HandleHandler("/api/notifications/", h)
}

func (r *Router) RegisterContactRoutes(h *ContactsHandler) {
	r.HandleHandler("/api/contact", h)
	r.HandleHandler("/api/contacts", h)
	r.HandleHandler("/api/contacts/", h)
}

func (r *Router) RegisterWebSocketRoutes(hub *Hub) {
	r.Handle("/ws/notifications", hub.ServeWS)
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.HandleHandler("/api/health", h)
}

// RegisterStaticRoutes 前端页面；"/" 跳转到首页
func (r *Router) RegisterStaticRoutes(dir string) {
	files := http.FileServer(http.Dir(dir))
	r.Handle("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/" {
			http.Redirect(w, req, "/home.html", http.StatusFound)
			return
		}
		if strings.HasPrefix(req.URL.Path, "/api/") {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		files.ServeHTTP(w, req)
	})
}
