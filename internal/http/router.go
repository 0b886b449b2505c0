package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
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

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterBindingRoutes 注册绑定生命周期路由（均需认证）
func (r *Router) RegisterBindingRoutes(h *BindingHandler, authMW func(http.HandlerFunc) http.HandlerFunc) {
	// 序列号绑定没有路径参数，单独挂载
	r.Handle("/binding/api/v1/devices/bind-map-user", authMW(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.BindMapUser(w, req)
	}))

	// /binding/api/v1/devices/{id}[/action]
	r.Handle("/binding/api/v1/devices/", authMW(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/binding/api/v1/devices/")
		parts := strings.Split(rest, "/")
		if len(parts) == 0 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deviceID := parts[0]

		switch {
		case len(parts) == 1:
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.GetDevice(w, req, deviceID)
		case len(parts) == 2 && req.Method == http.MethodPost:
			switch parts[1] {
			case "bind-elder":
				h.BindElder(w, req, deviceID)
			case "unbind":
				h.Unbind(w, req, deviceID)
			case "tags":
				h.UpdateTags(w, req, deviceID)
			case "recompute-inheritance":
				h.RecomputeInheritance(w, req, deviceID)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		case len(parts) == 2:
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}
