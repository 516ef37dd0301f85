package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nomadlinkAPI/handlers"
	"nomadlinkAPI/internal/push"
	"nomadlinkAPI/middleware"
	"nomadlinkAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	proximityService    *services.ProximityService
	connectionService   *services.ConnectionService
	blockService        *services.BlockService
	messageService      *services.MessageService
	assistService       *services.AssistService
	discussionService   *services.DiscussionService
	activityService     *services.ActivityService
	notificationService *services.NotificationService
	dispatcher          *services.NotificationDispatcher
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	proximityService = services.NewProximityService(dbPool)
	connectionService = services.NewConnectionService(dbPool, notificationService)
	blockService = services.NewBlockService(dbPool)
	messageService = services.NewMessageService(dbPool, notificationService)
	assistService = services.NewAssistService(dbPool, notificationService)
	discussionService = services.NewDiscussionService(dbPool)
	activityService = services.NewActivityService(dbPool)

	fcmService, err := push.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		dispatcher = services.NewNotificationDispatcher(notificationService, fcmService)
		notificationService.SetDispatcher(dispatcher)
		log.Println("FCM push provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	if dispatcher != nil {
		dispatcher.Start()
	}

	userHandler := handlers.NewUserHandler(userService)
	nearbyHandler := handlers.NewNearbyHandler(proximityService)
	connectionHandler := handlers.NewConnectionHandler(connectionService)
	blockHandler := handlers.NewBlockHandler(blockService)
	messageHandler := handlers.NewMessageHandler(messageService)
	assistHandler := handlers.NewAssistHandler(assistService)
	discussionHandler := handlers.NewDiscussionHandler(discussionService)
	activityHandler := handlers.NewActivityHandler(activityService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "nomadlink-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()

	// The proximity query works without a token; an authenticated viewer is
	// excluded from their own results.
	nearby := api.PathPrefix("/nearby-nomads").Subrouter()
	nearby.Use(middleware.OptionalAuthMiddleware)
	nearby.HandleFunc("", nearbyHandler.GetNearbyNomads).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/update-location", userHandler.UpdateLocation).Methods("POST")
	protected.HandleFunc("/user/search", userHandler.SearchNomads).Methods("GET")
	protected.HandleFunc("/user/qr-invite", userHandler.GetQRInvite).Methods("GET")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/users/{id}", userHandler.GetPublicProfile).Methods("GET")

	protected.HandleFunc("/connections/request", connectionHandler.SendRequest).Methods("POST")
	protected.HandleFunc("/connections/{id}/accept", connectionHandler.Accept).Methods("POST")
	protected.HandleFunc("/connections/{id}/reject", connectionHandler.Reject).Methods("POST")
	protected.HandleFunc("/connections/{id}/cancel", connectionHandler.Cancel).Methods("POST")
	protected.HandleFunc("/connections/friends", connectionHandler.ListFriends).Methods("GET")
	protected.HandleFunc("/connections/pending", connectionHandler.ListPending).Methods("GET")
	protected.HandleFunc("/connections/status/{userId}", connectionHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/connections/{userId}", connectionHandler.Remove).Methods("DELETE")

	protected.HandleFunc("/block/{userId}", blockHandler.Block).Methods("POST")
	protected.HandleFunc("/block/{userId}", blockHandler.Unblock).Methods("DELETE")
	protected.HandleFunc("/block/check/{userId}", blockHandler.Check).Methods("GET")
	protected.HandleFunc("/blocks", blockHandler.ListBlocked).Methods("GET")

	// Registered before the {userId} routes so mux does not treat
	// "unread-count" as a user id.
	protected.HandleFunc("/messages/unread-count", messageHandler.UnreadCount).Methods("GET")
	protected.HandleFunc("/messages/{userId}", messageHandler.Send).Methods("POST")
	protected.HandleFunc("/messages/{userId}", messageHandler.ListConversation).Methods("GET")
	protected.HandleFunc("/messages/{userId}/read", messageHandler.MarkConversationRead).Methods("PUT")

	protected.HandleFunc("/assist", assistHandler.CreateRequest).Methods("POST")
	protected.HandleFunc("/assist", assistHandler.ListRequests).Methods("GET")
	protected.HandleFunc("/assist/{id}", assistHandler.GetRequest).Methods("GET")
	protected.HandleFunc("/assist/{id}/resolve", assistHandler.Resolve).Methods("PUT")
	protected.HandleFunc("/assist/{id}/comments", assistHandler.AddComment).Methods("POST")
	protected.HandleFunc("/assist/{id}/comments", assistHandler.ListComments).Methods("GET")

	protected.HandleFunc("/sos", assistHandler.ActivateSOS).Methods("POST")
	protected.HandleFunc("/sos", assistHandler.DeactivateSOS).Methods("DELETE")
	protected.HandleFunc("/sos/nearby", assistHandler.ListActiveSOS).Methods("GET")

	protected.HandleFunc("/discussions", discussionHandler.Create).Methods("POST")
	protected.HandleFunc("/discussions", discussionHandler.List).Methods("GET")
	protected.HandleFunc("/discussions/{id}", discussionHandler.Get).Methods("GET")
	protected.HandleFunc("/discussions/{id}", discussionHandler.Update).Methods("PUT")
	protected.HandleFunc("/discussions/{id}", discussionHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/discussions/{id}/comments", discussionHandler.AddComment).Methods("POST")
	protected.HandleFunc("/discussions/{id}/comments", discussionHandler.ListComments).Methods("GET")

	protected.HandleFunc("/activities", activityHandler.Create).Methods("POST")
	protected.HandleFunc("/activities", activityHandler.List).Methods("GET")
	protected.HandleFunc("/activities/{id}", activityHandler.Get).Methods("GET")
	protected.HandleFunc("/activities/{id}/cancel", activityHandler.Cancel).Methods("PUT")

	protected.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/register-device", notificationHandler.UnregisterDevice).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if dispatcher != nil {
		dispatcher.Stop()
	}

	log.Println("Server shutdown complete")
}
