package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/raven-go"

	"dnsproxy/internal/cache"
	"dnsproxy/internal/log"
	"dnsproxy/internal/meta"
	"dnsproxy/internal/metrics"
	"dnsproxy/internal/network"
	"dnsproxy/internal/protocol"
)

const defaultUpstream = "8.8.8.8:53"

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("DNSPROXY_CONFIG"),
		"path to an optional configuration file on disk",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled dnsproxy version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"error",
		"desired logging verbosity: one of error, warning, info, debug",
	)
	logPath := flag.String(
		"log",
		"",
		"path to a log file on disk; if unset, logs are written to the console only",
	)
	flag.Parse()

	if *version {
		fmt.Printf("dnsproxy/%s\n", meta.VersionSHA)
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dnsproxy [flags] <port> <hosts_file> [fwd_addr:fwd_port]")
		os.Exit(1)
	}
	port := args[0]
	hostsPath := args[1]
	upstream := defaultUpstream
	if len(args) >= 3 {
		upstream = args[2]
	}

	level, _ := log.ParseLevel(*verbosity)
	logger := log.NewConsoleLogger(level)
	if *logPath != "" {
		fileLogger, err := log.Instance(*logPath, "dnsproxy", level)
		if err != nil {
			panic(err)
		}
		logger = fileLogger
	}
	logger.Debug("main: initialized logger: level=%v", level)

	cacheCapacity := 0
	udpWorkers := 0
	var udpWriteTimeout time.Duration

	if *configPath != "" {
		logger.Debug("main: reading and parsing config: path=%s", *configPath)
		config, err := meta.ParseConfig(*configPath)
		if err != nil {
			panic(err)
		}

		if config.Application != nil && config.Application.SentryDSN != "" {
			raven.SetDSN(config.Application.SentryDSN)
			raven.SetRelease(meta.VersionSHA)
		}

		if config.Upstream != nil && config.Upstream.Address != "" {
			upstream = config.Upstream.Address
		}

		if config.Cache != nil {
			if config.Cache.HostsPath != "" {
				hostsPath = config.Cache.HostsPath
			}
			cacheCapacity = config.Cache.Capacity
		}

		if config.Listener != nil && config.Listener.UDP != nil {
			udpWorkers = config.Listener.UDP.Workers
			udpWriteTimeout = config.Listener.UDP.WriteTimeout
		}

		clientCxLifecycleHook, clientCxIOHook, proxyHook := configureMetrics(config, logger)
		run(port, hostsPath, upstream, udpWorkers, udpWriteTimeout, cacheCapacity, logger,
			clientCxLifecycleHook, clientCxIOHook, proxyHook)
		return
	}

	run(
		port, hostsPath, upstream, udpWorkers, udpWriteTimeout, cacheCapacity, logger,
		metrics.NewNoopConnectionLifecycleHook(),
		metrics.NewNoopConnectionIOHook(),
		metrics.NewNoopProxyHook(),
	)
}

// configureMetrics builds statsd-backed hooks if the config requests them, otherwise noop hooks.
func configureMetrics(config *meta.Config, logger log.Logger) (
	metrics.ConnectionLifecycleHook,
	metrics.ConnectionIOHook,
	metrics.ProxyHook,
) {
	if config.Metrics == nil || config.Metrics.Statsd == nil {
		logger.Warn("main: no metrics output engine specified; disabling metrics")
		return metrics.NewNoopConnectionLifecycleHook(),
			metrics.NewNoopConnectionIOHook(),
			metrics.NewNoopProxyHook()
	}

	addr := config.Metrics.Statsd.Address
	sampleRate := float32(config.Metrics.Statsd.SampleRate)

	logger.Info("main: configuring statsd metrics reporting: addr=%s sample_rate=%f", addr, sampleRate)

	cxLifecycleHook, err := metrics.NewAsyncStatsdConnectionLifecycleHook("client", addr, sampleRate)
	if err != nil {
		panic(err)
	}

	cxIOHook, err := metrics.NewAsyncStatsdConnectionIOHook("client", addr, sampleRate)
	if err != nil {
		panic(err)
	}

	proxyHook, err := metrics.NewAsyncStatsdProxyHook(addr, sampleRate)
	if err != nil {
		panic(err)
	}

	return cxLifecycleHook, cxIOHook, proxyHook
}

// run constructs the cache, the request handler, and the UDP listener, then serves until a
// termination signal arrives, at which point it drains the listener and persists the cache.
func run(
	port string,
	hostsPath string,
	upstream string,
	udpWorkers int,
	udpWriteTimeout time.Duration,
	cacheCapacity int,
	logger log.Logger,
	cxLifecycleHook metrics.ConnectionLifecycleHook,
	cxIOHook metrics.ConnectionIOHook,
	proxyHook metrics.ProxyHook,
) {
	addr := port
	if !strings.Contains(port, ":") {
		addr = fmt.Sprintf(":%s", port)
	}

	logger.Info("main: hydrating cache: hosts_path=%s capacity=%d", hostsPath, cacheCapacity)
	nameCache, err := cache.NewCache(hostsPath, cacheCapacity)
	if err != nil {
		panic(err)
	}

	handler := &protocol.DNSHandler{
		Cache:            nameCache,
		Upstream:         upstream,
		ClientCxIOHook:   cxIOHook,
		UpstreamCxIOHook: cxIOHook,
		ProxyHook:        proxyHook,
		Logger:           logger,
		Opts:             protocol.DNSHandlerOpts{},
	}

	server := network.NewUDPServer(addr, cxLifecycleHook, network.UDPServerOpts{
		Workers:      udpWorkers,
		WriteTimeout: udpWriteTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() {
		logger.Info("main: serving UDP: addr=%s upstream=%s", addr, upstream)
		serveDone <- server.ListenAndServe(ctx, handler)
	}()

	select {
	case s := <-sig:
		logger.Info("main: received signal, shutting down: signal=%v", s)
		cancel()
		<-serveDone
	case err := <-serveDone:
		if err != nil {
			logger.Error("main: server exited with error: err=%v", err)
		}
	}

	logger.Info("main: persisting cache before exit")
	if err := nameCache.Shutdown(); err != nil {
		logger.Error("main: error persisting cache: err=%v", err)
	}

	if fileLogger, ok := logger.(*log.FileLogger); ok {
		fileLogger.Shutdown()
	}
}
