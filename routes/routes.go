package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/djgianterkancelik-svg/xentix/controllers"
	"github.com/djgianterkancelik-svg/xentix/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func InitRouter(ctrl *controllers.MinerController) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks
	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "xentix-api",
		})
	})).Methods(http.MethodGet)

	// CORS - origins from CORS_ALLOWED_ORIGINS (comma-separated); the mini
	// app is served cross-origin from the Telegram webview
	origins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		for _, p := range strings.Split(env, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "X-Requested-With", "X-Request-ID"}),
		)(next)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodOptions)

	// Read endpoints get a loose per-IP limit, mutations a tighter one.
	readLimiter := middleware.NewIPRateLimiter(300, time.Minute)
	writeLimiter := middleware.NewIPRateLimiter(60, time.Minute)

	api.Handle("/user/{user_id}", readLimiter.Middleware(http.HandlerFunc(ctrl.GetUserStats))).Methods(http.MethodGet)
	api.Handle("/tasks/{user_id}", readLimiter.Middleware(http.HandlerFunc(ctrl.GetTasks))).Methods(http.MethodGet)
	api.Handle("/referrals/{user_id}", readLimiter.Middleware(http.HandlerFunc(ctrl.GetReferrals))).Methods(http.MethodGet)
	api.Handle("/mine", writeLimiter.Middleware(http.HandlerFunc(ctrl.MineTokens))).Methods(http.MethodPost)
	api.Handle("/complete-task", writeLimiter.Middleware(http.HandlerFunc(ctrl.CompleteTask))).Methods(http.MethodPost)

	return r
}
