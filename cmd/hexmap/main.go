package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/hexmap/internal/config"
	"github.com/DoyleJ11/hexmap/internal/httpapi"
	"github.com/DoyleJ11/hexmap/internal/logging"
	"github.com/DoyleJ11/hexmap/internal/narrative"
	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/DoyleJ11/hexmap/internal/rendezvous"
	"github.com/DoyleJ11/hexmap/internal/replica"
	"github.com/DoyleJ11/hexmap/internal/world"
	"github.com/DoyleJ11/hexmap/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	name := flag.String("name", "", "username shown to other participants")
	listen := flag.String("listen", "", "link listener address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *name != "" {
		cfg.Participant.Username = *name
	}
	if *listen != "" {
		cfg.Participant.ListenAddr = *listen
		cfg.Participant.AdvertiseAddr = *listen
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("participant stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	p := cfg.Participant
	ln, err := net.Listen("tcp", p.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	rv := rendezvous.NewClient(p.RendezvousURL)
	selfID, err := rv.Register(ctx, p.AdvertiseAddr)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("register with rendezvous: %w", err)
	}
	logger = logger.With(zap.String("self", selfID))
	logger.Info("registered", zap.String("addr", p.AdvertiseAddr))

	node := replica.NewNode(ctx, selfID, replica.Config{
		Username:    p.Username,
		DiceDisplay: p.DiceDisplay,
		Link:        peer.Options{SendTimeout: p.SendTimeout, OutboxSize: p.OutboxSize},
	}, world.New(), ws.Dialer{Resolver: rv, SelfID: selfID}, logger)

	srv := &http.Server{
		Handler:           httpapi.LinkRoutes(node.AcceptLink, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	narrator := narrative.NewOpenAI(narrative.Config{
		APIKey:  cfg.Narrative.APIKey,
		BaseURL: cfg.Narrative.BaseURL,
		Model:   cfg.Narrative.Model,
	}, logger)
	con := &console{
		node:           node,
		narrator:       narrator,
		narrateTimeout: cfg.Narrative.Timeout,
		out:            os.Stdout,
		maxImage:       p.MaxImageDimension,
		now:            time.Now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := con.run(gctx, os.Stdin)
		// quitting the console ends the process
		node.Stop()
		return err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-node.Done():
		}
		node.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rv.Unregister(shutdownCtx, selfID); err != nil {
			logger.Warn("unregister", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
