package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-canvas/backend/internal/handler/canvas"
	middlewarePkg "github.com/zhouzirui/z-canvas/backend/internal/middleware"
	canvasService "github.com/zhouzirui/z-canvas/backend/internal/service/canvas"
	"github.com/zhouzirui/z-canvas/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(canvasSvc *canvasService.Service, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middlewarePkg.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	canvasHandler := canvas.New(canvasSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": canvasSvc.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		canvasHandler.RegisterRoutes(api)
	})

	return r
}
