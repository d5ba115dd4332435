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

	"mercado-qa/internal/logger"
	"mercado-qa/internal/mercadotest"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	latency := flag.Duration("latency", 0, "delay added to every response")
	flag.Parse()

	log := logger.GetLogger().WithComponent("mercadomock")
	h := mercadotest.NewHandler(mercadotest.NewStore(), mercadotest.WithLatency(*latency))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", *addr).Info("mercadomock listening, base URL is http://localhost" + *addr + "/mercado")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
