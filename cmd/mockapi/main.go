// Package main runs the in-memory mock of the platform API for local
// development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/mockapi"
)

var (
	addr    string
	secret  string
	verbose bool
)

func init() {
	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.StringVar(&secret, "secret", "dev-only-secret", "JWT signing secret")
	flag.BoolVar(&verbose, "verbose", false, "Enable request logging")
	flag.BoolVar(&verbose, "v", false, "Enable request logging (shorthand)")
}

func main() {
	flag.Parse()

	log := zap.NewNop()
	if verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	srv := &http.Server{
		Addr:              addr,
		Handler:           mockapi.NewServer(secret, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Mock platform API listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
