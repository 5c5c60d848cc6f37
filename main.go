package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksgate/internal/config"
	"github.com/die-net/socksgate/internal/conn"
	"github.com/die-net/socksgate/internal/credentials"
	"github.com/die-net/socksgate/internal/dialer"
	"github.com/die-net/socksgate/internal/metrics"
	"github.com/die-net/socksgate/internal/proxy"
	"github.com/die-net/socksgate/internal/sniff"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args, os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	log.SetFormatter(&nested.Formatter{
		FieldsOrder:     []string{"client", "user", "dst", "stage"},
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pcfg := proxy.Config{
		NegotiationTimeout: cfg.NegotiationTimeout,
		Dialer:             dialer.New(cfg.Dialer()),
		Credentials:        credentials.NewStore(cfg.UsersFile, log.StandardLogger()),
		Metrics:            metrics.New(reg),
	}
	if cfg.Sniff {
		pcfg.Sniffer = sniff.New(cfg.Sniffer())
		log.Infof("sniffing for %q, redirecting to %s", cfg.SniffSignature, pcfg.Sniffer.Target())
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DebugListen != "" {
		http.Handle("/metrics", metrics.Handler(reg))

		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.DebugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Infof("debug listening on %s", cfg.DebugListen)
	}

	ln, err := conn.ListenTCP(ctx, "tcp", cfg.ListenAddr(), cfg.Socket())
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	s5 := proxy.NewSOCKS5Server(ctx, pcfg, log.StandardLogger())
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := s5.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Infof("socks5 proxy listening on %s", ln.Addr())

	err = g.Wait()

	log.Info("shutting down")
	return err
}
