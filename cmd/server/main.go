// Command main is the entry point for the IrtzaLink backend server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irtzalink/internal/blob"
	"irtzalink/internal/bootstrap"
	"irtzalink/internal/config"
	"irtzalink/internal/observability"
	"irtzalink/internal/server"
)

func main() {
	seedDemo := flag.Bool("seed", false, "seed demo data into an empty development database")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		SeedDemoData: *seedDemo,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	var blobStore blob.Store
	if cfg.AvatarBucket != "" {
		blobStore, err = blob.NewS3Store(ctx, cfg.AvatarBucket, cfg.AWSRegion)
		if err != nil {
			log.Printf("Avatar store unavailable, uploads disabled: %v", err)
		}
	}

	srv, err := server.NewServerWithDeps(cfg, db, redisClient, blobStore)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	log.Fatal(srv.Start())
}
