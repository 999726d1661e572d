package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/TattooNOW/tattoonow-show/internal/config"
	"github.com/TattooNOW/tattoonow-show/internal/control"
	"github.com/TattooNOW/tattoonow-show/internal/db"
	"github.com/TattooNOW/tattoonow-show/internal/handlers"
	"github.com/TattooNOW/tattoonow-show/internal/services"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	setupLogging(cfg.Log)

	// Initialize database
	if err := db.InitDatabase(cfg.Data.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize services
	showStore, err := services.NewShowStore(cfg.Data.ShowsDir)
	if err != nil {
		log.Fatalf("Failed to initialize show store: %v", err)
	}
	tapeStore, err := services.NewTapeStore(cfg.Data.TapesDir, cfg.Presentation.TapeFetchWorkers)
	if err != nil {
		log.Fatalf("Failed to initialize tape store: %v", err)
	}
	tick := time.Duration(cfg.Presentation.TickIntervalMs) * time.Millisecond
	sessions := services.NewSessionManager(showStore, tapeStore, tick)
	defer sessions.CloseAll()
	buttonService := services.NewButtonService(db.DB)
	wsService := services.NewWebSocketService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go wsService.Run(ctx)

	// Optional outbound connection to an external control device
	var bridge *control.Bridge
	if cfg.Control.BridgeURL != "" {
		if cfg.Control.ShowID == "" {
			log.Printf("Control bridge configured without a show id, not starting")
		} else {
			bridge = control.NewBridge(cfg.Control.BridgeURL,
				services.SessionNavigator{Sessions: sessions, ShowID: cfg.Control.ShowID},
				control.BridgeOptions{
					InitialDelay: time.Duration(cfg.Control.ReconnectMinMs) * time.Millisecond,
					MaxDelay:     time.Duration(cfg.Control.ReconnectMaxMs) * time.Millisecond,
				})
			go bridge.Run(ctx)
		}
	}

	// Initialize handlers
	upgrader := handlers.NewUpgrader(cfg.Control.AllowedOrigins)
	wsHandler := handlers.NewWebSocketHandler(wsService, sessions, upgrader)
	presentationHandler := handlers.NewPresentationHandler(showStore, sessions, wsService)
	controlHandler := handlers.NewControlHandler(sessions, upgrader, bridge)
	buttonHandler := handlers.NewButtonHandler(sessions, buttonService)

	// Setup routes
	router := handlers.SetupRoutes(wsHandler, presentationHandler, controlHandler, buttonHandler)

	// Configure server
	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		server.TLSConfig = &tls.Config{
			MinVersion: getTLSVersion(cfg.TLS.MinVersion),
		}

		log.Printf("Starting HTTPS server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("TLS Certificate: %s", cfg.TLS.CertFile)
		log.Printf("TLS Key: %s", cfg.TLS.KeyFile)
		log.Printf("TLS Min Version: %s", cfg.TLS.MinVersion)

		err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		log.Printf("Starting HTTP server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Warning: HTTP mode is not recommended for production")

		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server error: %v", err)
	}
}

// setupLogging sends log output to stdout and, when configured, to a rotated file
func setupLogging(cfg config.LogConfig) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.File == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}))
}

// getTLSVersion converts string version to tls.Version constant
func getTLSVersion(version string) uint16 {
	switch version {
	case "1.0":
		return tls.VersionTLS10
	case "1.1":
		return tls.VersionTLS11
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
