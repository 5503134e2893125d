// Package app runs the front end and the ingest listener as independent
// units under one context. They share no memory: the router reaches the
// listener over UDP and both sides meet again only in the store file.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"

	"msgboard/relay/internal/api"
	"msgboard/relay/internal/config"
	"msgboard/relay/internal/forward"
	"msgboard/relay/internal/health"
	"msgboard/relay/internal/ingest"
	"msgboard/relay/internal/store"
	"msgboard/relay/internal/web"
)

// Mode selects which units a process runs.
type Mode int

const (
	ModeAll Mode = iota
	ModeWeb
	ModeListener
)

func (m Mode) web() bool      { return m == ModeAll || m == ModeWeb }
func (m Mode) listener() bool { return m == ModeAll || m == ModeListener }

const shutdownTimeout = 5 * time.Second

// Addrs are the addresses actually bound; nil when a unit is not running.
type Addrs struct {
	HTTP     net.Addr
	Listener net.Addr
	Probes   net.Addr
	GRPC     net.Addr
}

type options struct {
	log     *slog.Logger
	onReady func(Addrs)
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithReady is called once every socket is bound, before serving starts.
func WithReady(fn func(Addrs)) Option { return func(o *options) { o.onReady = fn } }

// Run binds every socket the mode needs and serves until ctx is done or
// a unit fails. Bind errors are returned before anything is served.
func Run(ctx context.Context, cfg config.Config, mode Mode, opts ...Option) error {
	o := options{log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	log := o.log

	st := store.New(cfg.Storage.Path, store.WithLogger(log))
	if err := st.EnsureExists(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	var (
		addrs     Addrs
		closers   []func()
		listener  *ingest.Listener
		httpSrv   *http.Server
		httpLn    net.Listener
		probeSrv  *http.Server
		probeLn   net.Listener
		grpcSrv   *grpc.Server
		grpcHS    *grpchealth.Server
		grpcLn    net.Listener
		checks    []health.Check
		listening = health.NewFlag("listener")
		serving   = health.NewFlag("web")
	)
	fail := func(err error) error {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return err
	}

	if mode.listener() {
		checks = append(checks, health.CheckStorage(st))
	} else {
		checks = append(checks, health.CheckStorageReadable(st))
	}

	fwdAddr := cfg.ListenerAddr()
	if mode.listener() {
		l, err := ingest.Listen(cfg.ListenerAddr(), cfg.Listener.BufferSize, st, log)
		if err != nil {
			return fail(fmt.Errorf("ingest listener: %w", err))
		}
		listener = l
		closers = append(closers, func() { _ = l.Close() })
		addrs.Listener = l.Addr()
		fwdAddr = l.Addr().String()
		checks = append(checks, listening.Check)
	}

	if mode.web() {
		pages, err := web.New(cfg.Web.StaticDir)
		if err != nil {
			return fail(err)
		}
		ln, err := net.Listen("tcp", cfg.HTTPAddr())
		if err != nil {
			return fail(fmt.Errorf("http listener: %w", err))
		}
		closers = append(closers, func() { _ = ln.Close() })
		httpLn = ln
		addrs.HTTP = ln.Addr()

		h := api.NewHandlers(st, forward.New(fwdAddr), pages, log)
		httpSrv = &http.Server{
			Handler:           api.LogMiddleware(log, api.NewRouter(h)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		checks = append(checks, serving.Check)
	}

	if cfg.Probes.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Probes.Addr)
		if err != nil {
			return fail(fmt.Errorf("probes listener: %w", err))
		}
		closers = append(closers, func() { _ = ln.Close() })
		probeLn = ln
		addrs.Probes = ln.Addr()
		probeSrv = &http.Server{Handler: health.NewProbeMux(checks...), ReadHeaderTimeout: 5 * time.Second}
	}

	if cfg.Probes.GRPCAddr != "" {
		ln, err := net.Listen("tcp", cfg.Probes.GRPCAddr)
		if err != nil {
			return fail(fmt.Errorf("grpc health listener: %w", err))
		}
		closers = append(closers, func() { _ = ln.Close() })
		grpcLn = ln
		addrs.GRPC = ln.Addr()
		grpcSrv, grpcHS = health.NewGRPCServer()
	}

	if o.onReady != nil {
		o.onReady(addrs)
	}

	g, gctx := errgroup.WithContext(ctx)

	if listener != nil {
		g.Go(func() error {
			listening.Set(true)
			defer listening.Set(false)
			return listener.Run(gctx)
		})
	}
	if httpSrv != nil {
		g.Go(func() error {
			log.Info("http server starting", "addr", addrs.HTTP.String())
			serving.Set(true)
			defer serving.Set(false)
			if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}
	if probeSrv != nil {
		g.Go(func() error {
			log.Info("probes/metrics starting", "addr", addrs.Probes.String())
			if err := probeSrv.Serve(probeLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("probes server: %w", err)
			}
			return nil
		})
	}
	if grpcSrv != nil {
		g.Go(func() error {
			log.Info("grpc health starting", "addr", addrs.GRPC.String())
			health.MarkServing(grpcHS)
			if err := grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc health server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcHS != nil {
			grpcHS.Shutdown()
		}
		if httpSrv != nil {
			if err := httpSrv.Shutdown(sctx); err != nil {
				log.Error("http shutdown", "err", err)
			}
		}
		if probeSrv != nil {
			_ = probeSrv.Shutdown(sctx)
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if listener != nil {
			_ = listener.Close()
		}
		return nil
	})

	err := g.Wait()
	log.Info("all units stopped")
	return err
}
