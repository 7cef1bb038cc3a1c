package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"go.uber.org/zap"
)

var (
	store  storage.StorageInterface
	logger *zap.Logger
)

// zeroTime is passed to services that accept a pinned clock, meaning "use now".
var zeroTime time.Time

// Init wires the server package to its storage backend and logger. The habit,
// task, progress, and auth services must be initialized separately before
// Start is called.
func Init(s storage.StorageInterface, l *zap.Logger) {
	store = s
	logger = l
}

// Router builds the full REST route table. Split from Start so handler tests
// can drive it through httptest without binding a port.
func Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public auth endpoints.
	r.HandleFunc("/auth/signup", handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", handleRefresh).Methods(http.MethodPost)

	// Everything below requires a valid bearer token.
	api := r.NewRoute().Subrouter()
	api.Use(jwtMiddleware)

	api.HandleFunc("/auth/confirm", handleConfirmEmail).Methods(http.MethodPost)

	api.HandleFunc("/me", handleGetMe).Methods(http.MethodGet)
	api.HandleFunc("/me", handleUpdateMe).Methods(http.MethodPut)
	api.HandleFunc("/me", handleDeleteMe).Methods(http.MethodDelete)

	api.HandleFunc("/habits", handleListHabits).Methods(http.MethodGet)
	api.HandleFunc("/habits", handleCreateHabit).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id}", handleGetHabit).Methods(http.MethodGet)
	api.HandleFunc("/habits/{id}", handleUpdateHabit).Methods(http.MethodPatch)
	api.HandleFunc("/habits/{id}", handleDeleteHabit).Methods(http.MethodDelete)
	api.HandleFunc("/habits/{id}/complete", handleCompleteHabit).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id}/complete", handleUncompleteHabit).Methods(http.MethodDelete)

	api.HandleFunc("/tasks", handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", handleUpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/transition", handleTransitionTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/subtasks/{index}", handleSetSubtask).Methods(http.MethodPatch)

	api.HandleFunc("/achievements", handleListAchievements).Methods(http.MethodGet)

	r.Use(func(next http.Handler) http.Handler {
		return recoveryMiddleware(logger, next)
	})
	r.Use(metricsMiddleware)

	return r
}

// Start runs the REST server at the given URL until it fails. The router is
// wrapped with CORS and request logging.
func Start(serverURL string) error {
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	handler := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(Router())
	handler = loggingMiddleware(logger, handler)

	u, err := url.Parse(serverURL)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      handler,
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	logger.Info("server listening", zap.String("addr", u.Host))
	return server.ListenAndServe()
}
