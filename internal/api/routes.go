package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/runway-redeclaration/internal/config"
	"github.com/yegors/runway-redeclaration/internal/session"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router. journal may be nil when airports are
// not kept in SQLite.
func NewRouter(service *session.Service, journal *sqlite.RedeclarationStorage, config *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(service, journal, logger),
		middleware: NewMiddleware(logger),
		config:     config,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Airport routes
		router.Get("/airports", r.handler.GetAllAirports)
		router.Post("/airports", r.handler.CreateAirport)
		router.Post("/airports/import", r.handler.ImportAirport)
		router.Get("/airports/{airport}", r.handler.GetAirport)
		router.Put("/airports/{airport}", r.handler.RenameAirport)
		router.Delete("/airports/{airport}", r.handler.DeleteAirport)
		router.Get("/airports/{airport}/export", r.handler.ExportAirport)

		// Runway routes
		router.Route("/airports/{airport}/runways", func(router chi.Router) {
			router.Post("/", r.handler.AddRunway)
			router.Get("/{runway}", r.handler.GetRunway)
			router.Put("/{runway}", r.handler.ModifyRunway)
			router.Delete("/{runway}", r.handler.DeleteRunway)

			// Obstacle routes
			router.Post("/{runway}/obstacles", r.handler.AddObstacle)
			router.Put("/{runway}/obstacles/{obstacle}", r.handler.ModifyObstacle)
			router.Delete("/{runway}/obstacles/{obstacle}", r.handler.DeleteObstacle)

			// Calculation routes
			router.Post("/{runway}/redeclare", r.handler.Redeclare)
			router.Post("/{runway}/reset", r.handler.ResetRunway)
			router.Get("/{runway}/report", r.handler.GetReport)
		})

		// Journal
		router.Get("/redeclarations", r.handler.GetRedeclarations)
	})

	return router
}
