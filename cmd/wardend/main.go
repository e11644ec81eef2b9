// Command wardend is the Wi-Fi Active Mode Warden daemon entrypoint, built
// as a github.com/spf13/cobra command tree the way
// fyrsmithlabs-contextd/cmd/ctxd/main.go structures its CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gobus "github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wardend/internal/config"
	"wardend/internal/connection"
	"wardend/internal/dbusapi"
	"wardend/internal/logging"
	"wardend/internal/metrics"
	"wardend/internal/nativeif"
	"wardend/internal/policy"
	"wardend/internal/softap"
	"wardend/internal/telephony"
	"wardend/internal/traffic"
	"wardend/internal/warden"
)

var (
	configPath string
	busType    string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wardend",
	Short: "Wi-Fi Active Mode Warden daemon",
	Long:  "wardend coordinates Wi-Fi radio mode lifecycle (station, scan-only, SoftAp, emergency) over D-Bus.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&busType, "bus", "", "D-Bus bus type: session or system (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "force debug-level logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wardend daemon",
	RunE:  runServe,
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Dump the running daemon's PMSM graveyard",
	RunE:  runDiag,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if busType != "" {
		cfg.Bus.Type = busType
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logging.Init(cfg.Log.Level)
	log := logrus.WithField("component", "main")

	caps := softap.CapWPA3SAE | softap.CapMACRandomization | softap.CapClientForceDisconnect | softap.CapMaxClientsLimit
	native, err := nativeif.NewComposite(log.WithField("subsystem", "nativeif"), caps)
	if err != nil {
		return fmt.Errorf("init native interface layer: %w", err)
	}
	go native.Run()
	defer native.Close()

	store := policy.NewStore(cfg.PolicyCarrierConfig())
	rec := metrics.New()

	w := warden.New(native, store, telephony.None, rec, log.WithField("subsystem", "warden"), warden.Config{
		ExtraDelayOnImsLost:       cfg.ExtraDelayOnImsLost(),
		RecoveryDelay:             cfg.RecoveryDelay(),
		StaApConcurrencySupported: cfg.Warden.StaApConcurrencySupported,
		EngineFactory: func() connection.Engine {
			eng, err := connection.NewIWDEngine(log.WithField("subsystem", "connection"))
			if err != nil {
				log.WithError(err).Warn("failed to construct IWD connection engine, falling back to no-op")
				return connection.NoOp
			}
			return eng
		},
	})
	defer w.Close()

	trafficMon := traffic.NewMonitor(w.ActiveInterfaces)
	go trafficMon.Run()
	defer trafficMon.Stop()

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("metrics http server stopped")
			}
		}()
		defer metricsSrv.Close()
	}

	svc, err := dbusapi.NewService(cfg.Bus.Type, w, log.WithField("subsystem", "dbusapi"))
	if err != nil {
		return fmt.Errorf("start dbus control surface: %w", err)
	}
	defer svc.Close()
	svc.SetDefaults(cfg)

	log.Info("wardend ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}

func runDiag(cmd *cobra.Command, args []string) error {
	resolvedBus := busType
	if resolvedBus == "" {
		resolvedBus = "system"
	}

	var conn *gobus.Conn
	var err error
	if resolvedBus == "session" {
		conn, err = gobus.SessionBus()
	} else {
		conn, err = gobus.SystemBus()
	}
	if err != nil {
		return fmt.Errorf("connect to D-Bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(dbusapi.ServiceName, dbusapi.ObjectPath)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var dump string
	call := obj.CallWithContext(ctx, dbusapi.Interface+".DumpGraveyard", 0)
	if call.Err != nil {
		return fmt.Errorf("call DumpGraveyard: %w", call.Err)
	}
	if err := call.Store(&dump); err != nil {
		return fmt.Errorf("decode DumpGraveyard reply: %w", err)
	}

	fmt.Print(dump)
	return nil
}
