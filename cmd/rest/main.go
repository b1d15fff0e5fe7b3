package main

import (
	"context"
	"log"

	"github.com/rachit-keshari-2003312/third-eye-project/internal/bootstrap"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/config"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/server"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.SysLogger.Sync()

	// 3. Initialize Server
	srv := server.New(cfg, container)

	// 4. Run Server
	log.Fatal(srv.Run())
}
