// Command dynvland runs the dynamic VLAN topology daemon: it loads
// configuration, builds one BSS aggregate per configured BSS, starts each
// one's netlink link watcher, and serves Prometheus metrics until
// terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dynvland/dynvland/internal/config"
	"github.com/dynvland/dynvland/internal/preauth"
	"github.com/dynvland/dynvland/internal/stationvif"
	"github.com/dynvland/dynvland/internal/vlanmetrics"
	"github.com/dynvland/dynvland/internal/vland"
	"github.com/dynvland/dynvland/internal/vlog"
	"github.com/dynvland/dynvland/internal/wpaauth"
)

func main() {
	configPath := flag.String("config", "", "path to dynvland YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dynvland: load config:", err)
		os.Exit(1)
	}

	logger := vlog.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := vlanmetrics.New(registry)

	bsses, err := buildBSSes(cfg, metrics, logger)
	if err != nil {
		logger.Error("build bsses", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, b := range bsses {
		if err := b.Init(ctx); err != nil {
			logger.Error("bss init failed", slog.String("iface", b.Iface), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.ListenMetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("dynvland started", slog.Int("bss_count", len(bsses)), slog.String("metrics_addr", cfg.ListenMetricsAddr))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	for _, b := range bsses {
		b.Deinit(context.Background())
	}
}

// buildBSSes constructs one vland.BSS per configured BSS block, wiring the
// configured driver and a netlink watcher onto each.
func buildBSSes(cfg *config.Config, metrics *vlanmetrics.Metrics, logger *slog.Logger) ([]*vland.BSS, error) {
	var driver vland.Driver
	switch cfg.Driver {
	case config.DriverScript:
		driver = vland.NewScriptDriver(cfg.ScriptPath, cfg.BridgePrefix, cfg.TaggedTrunk, logger)
	default:
		driver = vland.NewNetlinkDriver(logger)
	}
	driver = vland.Instrument(driver, metrics)

	naming := vland.NamingConfig{
		Mode:         namingMode(cfg.VlanNaming),
		TaggedTrunk:  cfg.TaggedTrunk,
		BridgePrefix: cfg.BridgePrefix,
	}
	if sd, ok := driver.(interface {
		BrName(ctx context.Context, vid int) (string, error)
	}); ok && cfg.Driver == config.DriverScript {
		naming.ScriptBrName = func(vid int) (string, error) { return sd.BrName(context.Background(), vid) }
	}

	bsses := make([]*vland.BSS, 0, len(cfg.BSSes))
	for _, b := range cfg.BSSes {
		bindings := make([]*vland.Binding, 0, len(b.VlanList))
		for _, bc := range b.VlanList {
			bindings = append(bindings, &vland.Binding{
				IfName: bc.IfName,
				VlanID: bc.VlanID,
				Desc: vland.VlanDescription{
					NotEmpty: bc.Untagged != 0 || len(bc.Tagged) > 0,
					Untagged: bc.Untagged,
					Tagged:   bc.Tagged,
				},
			})
		}

		bss := vland.NewBSS(
			b.Iface,
			b.WEPKeyed,
			dynamicVlanMode(b.DynamicVlan),
			b.PerStaVIF,
			driver,
			naming,
			b.Bridge,
			stationvif.Manager(noopStationVIF{}),
			wpaauth.Noop{},
			preauth.Noop{},
			bindings,
			logger,
		)
		bss.AttachWatcher(vland.NewWatcher(bss, logger))
		bsses = append(bsses, bss)
	}
	return bsses, nil
}

func namingMode(m config.VlanNamingMode) vland.VlanNamingMode {
	if m == config.WithDevice {
		return vland.WithDevice
	}
	return vland.WithoutDevice
}

func dynamicVlanMode(m config.DynamicVlanMode) vland.DynamicVlanMode {
	switch m {
	case config.DynamicVlanOptional:
		return vland.DynamicVlanOptional
	case config.DynamicVlanRequired:
		return vland.DynamicVlanRequired
	default:
		return vland.DynamicVlanDisabled
	}
}

// noopStationVIF is the default per-station virtual interface manager when
// no radio driver binding is wired in: that primitive belongs to the radio
// driver, so the standalone daemon binary no-ops rather than failing
// closed on every binding.
type noopStationVIF struct{}

func (noopStationVIF) Add(string) error    { return nil }
func (noopStationVIF) Remove(string) error { return nil }
