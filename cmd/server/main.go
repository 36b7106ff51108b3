package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat-backend/config"
	"roomchat-backend/handlers"
	"roomchat-backend/repository"
	"roomchat-backend/services"
	"roomchat-backend/ws"
)

// loggingMiddleware adds request logging
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s %s in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Sec-WebSocket-Protocol, Sec-WebSocket-Extensions, Sec-WebSocket-Key, Sec-WebSocket-Version, Upgrade, Connection")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	// --- config/env ---
	cfg := config.Load()

	log.Printf("Starting chat server on port %s", cfg.Port)

	// --- database + repos ---
	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	userRepo := repository.NewGormUserRepo(db)
	roomRepo := repository.NewGormRoomRepo(db)
	msgRepo := repository.NewGormMessageRepo(db)

	// --- default room ---
	if room, err := roomRepo.GetOrCreate("general"); err != nil {
		log.Printf("Warning: could not ensure default room: %v", err)
	} else {
		log.Printf("Default room: %s (ID: %s)", room.Name, room.ID)
	}

	// --- websocket hub (event bus) ---
	hub := ws.NewHub()
	go hub.Run()

	// --- services ---
	guard := services.NewAuthzGuard(userRepo)
	authSvc := services.NewAuthService(userRepo, &cfg)
	msgSvc := services.NewMessageService(msgRepo, roomRepo, userRepo, guard, hub, &cfg)
	roomSvc := services.NewRoomService(roomRepo, guard, hub)

	// --- admin bootstrap ---
	if cfg.AdminPassword != "" {
		if admin, err := authSvc.EnsureAdminUser(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Printf("Warning: could not bootstrap admin user: %v", err)
		} else {
			log.Printf("Admin user ready: %s (ID: %s)", admin.Username, admin.ID)
		}
	}

	// --- handlers ---
	authH := handlers.NewAuthHandler(authSvc)
	roomH := handlers.NewRoomHandler(roomSvc, msgSvc)
	msgH := handlers.NewMessageHandler(msgSvc)
	wsH := handlers.NewWSHandler(hub, authSvc)

	// --- mux and routes ---
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	// API routes
	mux.HandleFunc("/api/register", authH.Register)
	mux.HandleFunc("/api/login", authH.Login)
	mux.HandleFunc("/api/rooms", roomH.List)                                        // GET active rooms
	mux.HandleFunc("/api/rooms/create", authH.WithAuth(roomH.Create))               // POST admin
	mux.HandleFunc("/api/rooms/archive", authH.WithAuth(roomH.Archive))             // POST admin, idempotent
	mux.HandleFunc("/api/rooms/online", roomH.Online)                               // GET ?room=name
	mux.HandleFunc("/api/rooms/participants", authH.WithAuth(roomH.Participants))   // GET admin ?room=name
	mux.HandleFunc("/api/messages", authH.WithOptionalAuth(msgH.List))              // GET ?room=name&limit=20
	mux.HandleFunc("/api/messages/send", authH.WithAuth(msgH.Post))                 // POST public message
	mux.HandleFunc("/api/messages/dm", authH.WithAuth(msgH.SendDM))                 // POST admin dm
	mux.HandleFunc("/ws", wsH.Serve)                                                // WS ?room=name[&token=...]

	// Apply middleware
	handler := withCORS(loggingMiddleware(mux))

	// --- server setup ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- graceful shutdown ---
	go func() {
		log.Printf("Chat server running on http://localhost:%s", cfg.Port)
		log.Printf("WS endpoint: ws://localhost:%s/ws?room=<name>&token=<token>", cfg.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
