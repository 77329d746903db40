package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"taskmaster/backend/handlers"
	"taskmaster/backend/logging"
	"taskmaster/backend/middleware"
	"taskmaster/backend/repositories"
	"taskmaster/backend/services"
	"taskmaster/backend/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting TaskMaster backend...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoURI == "" || mongoDBName == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: MONGO_URI and MONGO_DB_NAME must be set.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB.")

	db := client.Database(mongoDBName)
	taskRepo := repositories.NewTaskRepo(db.Collection("tasks"))
	userRepo := repositories.NewUserRepo(db.Collection("users"))

	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: DB_INDEXES_READY, Description: Collection indexes ensured.")

	emailBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmailCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	jwtService := services.NewJWTService()
	taskService := services.NewTaskService(taskRepo)
	dashboardService := services.NewDashboardService(taskRepo)
	userService := services.NewUserService(userRepo, jwtService, utils.NewSMTPSender(), emailBreaker)

	taskHandler := handlers.NewTaskHandler(taskService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	authHandler := handlers.NewAuthHandler(userService)

	auth := middleware.JWTAuthMiddleware(jwtService)

	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/forgot-password", authHandler.ForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password/{token}", authHandler.ResetPassword).Methods(http.MethodPost)
	r.Handle("/api/auth/logout", auth(http.HandlerFunc(authHandler.Logout))).Methods(http.MethodPost)

	r.Handle("/api/tasks", auth(http.HandlerFunc(taskHandler.GetAllTasks))).Methods(http.MethodGet)
	r.Handle("/api/tasks", auth(http.HandlerFunc(taskHandler.CreateTask))).Methods(http.MethodPost)
	r.Handle("/api/tasks/{id}", auth(http.HandlerFunc(taskHandler.UpdateTask))).Methods(http.MethodPut)
	r.Handle("/api/tasks/{id}/status", auth(http.HandlerFunc(taskHandler.UpdateTaskStatus))).Methods(http.MethodPatch)
	r.Handle("/api/tasks/{id}", auth(http.HandlerFunc(taskHandler.DeleteTask))).Methods(http.MethodDelete)

	r.Handle("/api/dashboard/stats", auth(http.HandlerFunc(dashboardHandler.GetStats))).Methods(http.MethodGet)
	r.Handle("/api/dashboard/today-tasks", auth(http.HandlerFunc(dashboardHandler.GetTodayTasks))).Methods(http.MethodGet)

	corsRouter := middleware.EnableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
