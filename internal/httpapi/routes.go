package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/catalog"
	"github.com/mfcosta-games/cyber-siege-backend/internal/registry"
	"github.com/mfcosta-games/cyber-siege-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, cat *catalog.Catalog, log *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/rooms", CreateRoom(reg, log))
	r.Get("/themes", Themes(cat))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(reg, log.Named("ws"), allowedOrigins))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}
