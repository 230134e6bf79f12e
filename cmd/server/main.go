package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halduskeskus/postiljon/internal/api"
	"github.com/halduskeskus/postiljon/internal/auth"
	"github.com/halduskeskus/postiljon/internal/config"
	"github.com/halduskeskus/postiljon/internal/dispatch"
	"github.com/halduskeskus/postiljon/internal/drive"
	"github.com/halduskeskus/postiljon/internal/mail"
	"github.com/halduskeskus/postiljon/internal/pkg/logger"
	"github.com/halduskeskus/postiljon/internal/sheets"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	clients, err := config.LoadClients(cfg.Clients.Path)
	if err != nil {
		log.Fatalf("Failed to load client registry: %v", err)
	}
	log.Printf("Loaded %d client(s) from %s", len(clients), cfg.Clients.Path)

	pipeline := &dispatch.Pipeline{
		Sheets: func(ctx context.Context, credentialsPath string) (dispatch.RowSource, error) {
			return sheets.NewClient(ctx, credentialsPath)
		},
		Files: func(ctx context.Context, credentialsPath string) (dispatch.FileStore, error) {
			return drive.NewClient(ctx, credentialsPath)
		},
		Sender: func(client *config.Client) dispatch.Sender {
			return mail.New(client)
		},
		Transient: mail.Transient,
	}

	authManager := auth.NewManager(clients, cfg.Session.CookieName, cfg.Session.TTL())
	handlers := api.NewHandlers(pipeline, authManager)
	server := api.NewServer(cfg.Server, handlers, authManager)

	if err := checkPortAvailable(cfg.Server.GetHost(), cfg.Server.Port); err != nil {
		log.Fatalf("%v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", server.Addr())
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}
