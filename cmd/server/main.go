package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/roomrelay/internal/server"
)

func main() {
	log.Println("Starting room relay server...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	server.StartHub()

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down...", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := server.GetHub().Shutdown(5 * time.Second); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
