// LLM Guardian — a guarded gateway between client applications and a
// remote LLM completion endpoint. It detects and redacts sensitive
// values before a prompt ever leaves the process, optimizes and routes
// the redacted prompt to the right model tier, caches and audits the
// exchange, then restores the original values in the response.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/pkg/server"
)

func main() {
	ctx := context.Background()
	srv, err := server.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      srv.Handler,
		ReadTimeout:  srv.Config.HTTP.ReadTimeout(),
		WriteTimeout: srv.Config.HTTP.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.Config.HTTP.ShutdownGrace())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error during server shutdown")
		}
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", srv.Port).Str("version", srv.Config.App.Version).Msg("llmguardian listening")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
