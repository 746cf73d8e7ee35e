package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"classboard/internal/service"
	"classboard/internal/transport/rest/handler"
	"classboard/internal/transport/rest/middleware"
	"classboard/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService     *service.AuthService
	SessionService  *service.SessionService
	QuestionService *service.QuestionService
	Guard           *service.Guard
	WSHub           *ws.Hub
	Logger          *zap.Logger
	CORSOrigins     string
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.SessionService, c.AuthService)
	questionHandler := handler.NewQuestionHandler(c.QuestionService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Guard, c.Logger)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(requestLogger(c.Logger))

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/sessions/{id}", wsHandler.Subscribe).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Instructor routes
	instructorRoutes := v1.NewRoute().Subrouter()
	instructorRoutes.Use(authMW.RequireInstructor)
	instructorRoutes.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	instructorRoutes.HandleFunc("/sessions", sessionHandler.List).Methods("GET", "OPTIONS")

	// Member routes: any authenticated principal; the services decide
	// per-session authorization through the guard.
	memberRoutes := v1.NewRoute().Subrouter()
	memberRoutes.Use(authMW.RequireUser)
	memberRoutes.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/end", sessionHandler.End).Methods("POST", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/assistants", sessionHandler.AddAssistant).Methods("POST", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/questions", questionHandler.Create).Methods("POST", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/questions", questionHandler.List).Methods("GET", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/questions", questionHandler.ArchiveAll).Methods("DELETE", "OPTIONS")
	memberRoutes.HandleFunc("/sessions/{id}/questions/stats", questionHandler.Stats).Methods("GET", "OPTIONS")
	memberRoutes.HandleFunc("/questions/{id}", questionHandler.UpdateStatus).Methods("PATCH", "OPTIONS")

	return r
}

func corsMiddleware(origins string) mux.MiddlewareFunc {
	if origins == "" {
		origins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
