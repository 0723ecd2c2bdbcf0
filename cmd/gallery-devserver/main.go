package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charadev96/galleryclient/internal/client/domain"
	"github.com/charadev96/galleryclient/internal/server"
	"github.com/charadev96/galleryclient/internal/shared/log"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "Listen address")
	username := flag.String("user", "alice", "Name of the seeded account")
	password := flag.String("password", "alice", "Password of the seeded account")
	flag.Parse()

	logger := log.New("devserver")

	svc := server.NewService()
	svc.AddUser(domain.User{ID: 1, Username: *username, Email: *username + "@example.com"}, *password)
	svc.SaveAlbum(domain.Album{Title: "Holidays", Public: true})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           (&server.Server{Service: svc, Logger: &logger}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("address", *addr).
			Msg("started server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
