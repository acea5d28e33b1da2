package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Search session
	mux.HandleFunc("/api/session", s.app.SessionHandler.GetSessionHandler)             // GET
	mux.HandleFunc("/api/search", s.app.SessionHandler.SearchHandler)                  // POST {query}
	mux.HandleFunc("/api/select", s.app.SessionHandler.SelectPredictionHandler)        // POST {place_id, description}
	mux.HandleFunc("/api/selection", s.app.SessionHandler.ClearSelectionHandler)       // DELETE
	mux.HandleFunc("/api/history", s.handleHistoryRoute)                               // GET, DELETE
	mux.HandleFunc("/api/history/select", s.app.SessionHandler.SelectHistoryHandler)   // POST {place_id}
	mux.HandleFunc("/api/history/toggle", s.app.SessionHandler.ToggleHistoryHandler)   // POST
	mux.HandleFunc("/api/history/visible", s.app.SessionHandler.HistoryVisibleHandler) // PUT {visible}

	// API routes - Variables (KV store)
	mux.HandleFunc("/api/kv", s.handleKVRoute)     // GET, POST {key, value, description}
	mux.HandleFunc("/api/kv/", s.handleKVKeyRoute) // GET, PUT {value, description}, DELETE

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleHistoryRoute routes /api/history by method
func (s *Server) handleHistoryRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    s.app.SessionHandler.GetHistoryHandler,
		http.MethodDelete: s.app.SessionHandler.ClearHistoryHandler,
	})
}

// handleKVRoute routes /api/kv by method
func (s *Server) handleKVRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:  s.app.KVHandler.ListKVHandler,
		http.MethodPost: s.app.KVHandler.CreateKVHandler,
	})
}

// handleKVKeyRoute routes /api/kv/{key} by method
func (s *Server) handleKVKeyRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    s.app.KVHandler.GetKVHandler,
		http.MethodPut:    s.app.KVHandler.UpdateKVHandler,
		http.MethodDelete: s.app.KVHandler.DeleteKVHandler,
	})
}
