package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/interfaces/websocket"
	"github.com/joeleaver/pimble/pkg/observability"
	"go.uber.org/zap"
)

// Router assembles the HTTP boundary.
type Router struct {
	manager    *services.StoreManager
	workspace  ports.WorkspaceRepository
	hub        *websocket.Hub
	collector  *observability.Collector
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a router over the core services. The collector may
// be nil when metrics are disabled.
func NewRouter(
	manager *services.StoreManager,
	workspace ports.WorkspaceRepository,
	hub *websocket.Hub,
	collector *observability.Collector,
	logger *zap.Logger,
	enableCORS bool,
) *Router {
	return &Router{
		manager:    manager,
		workspace:  workspace,
		hub:        hub,
		collector:  collector,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup wires routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))
	if rt.collector != nil {
		router.Use(httpMetrics(rt.collector))
	}
	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}
	if rt.hub != nil {
		router.Get("/ws", rt.hub.ServeWS)
	}

	router.Route("/api/v1", func(r chi.Router) {
		storeHandler := NewStoreHandler(rt.manager, rt.logger)
		nodeHandler := NewNodeHandler(rt.manager, rt.logger)
		contentHandler := NewContentHandler(rt.manager, rt.logger)
		workspaceHandler := NewWorkspaceHandler(rt.workspace, rt.logger)

		r.Post("/flush", storeHandler.FlushAll)

		r.Route("/stores", func(r chi.Router) {
			r.Post("/", storeHandler.CreateStore)
			r.Post("/open", storeHandler.OpenStore)
			r.Get("/", storeHandler.ListStores)

			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/", storeHandler.GetStore)
				r.Delete("/", storeHandler.DeleteStore)
				r.Post("/close", storeHandler.CloseStore)
				r.Post("/flush", storeHandler.FlushStore)
				r.Post("/sweep", storeHandler.SweepAssets)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateNode)
					r.Get("/", nodeHandler.ListNodes)

					r.Route("/{nodeID}", func(r chi.Router) {
						r.Get("/", nodeHandler.GetNode)
						r.Patch("/", nodeHandler.UpdateNode)
						r.Delete("/", nodeHandler.DeleteNode)
						r.Get("/children", nodeHandler.GetChildren)
						r.Post("/move", nodeHandler.MoveNode)

						r.Get("/text", contentHandler.GetText)
						r.Put("/text", contentHandler.SetText)
						r.Get("/fields", contentHandler.GetFields)
						r.Put("/fields", contentHandler.SetField)
						r.Get("/render", contentHandler.Render)
						r.Get("/heads", contentHandler.GetHeads)
						r.Post("/changes", contentHandler.GetChanges)
						r.Post("/apply", contentHandler.ApplyChanges)
					})
				})

				r.Route("/assets", func(r chi.Router) {
					r.Post("/", contentHandler.PutAsset)
					r.Get("/{hash}", contentHandler.GetAsset)
				})
			})
		})

		r.Route("/workspace", func(r chi.Router) {
			r.Get("/", workspaceHandler.GetWorkspace)
			r.Put("/", workspaceHandler.PutWorkspace)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	stats := rt.manager.CacheStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"open_stores": len(rt.manager.ListStores(r.Context())),
		"cache_items": stats.Items,
	})
}
