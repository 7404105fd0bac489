package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"mapstick/internal/api"
	"mapstick/pkg/bridge"
	"mapstick/pkg/camera"
	"mapstick/pkg/camera/mockcam"
	"mapstick/pkg/config"
	"mapstick/pkg/controller"
	"mapstick/pkg/core"
	"mapstick/pkg/db"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/inputctx"
	"mapstick/pkg/logging"
	"mapstick/pkg/profile"
	"mapstick/pkg/store"
	"mapstick/pkg/tracker"
	"mapstick/pkg/version"
)

const (
	defaultConfigPath   = "configs/mapstick.yaml"
	persistenceInterval = 5 * time.Second
	statsInterval       = time.Minute
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// .env is optional; it may point MAPSTICK_CONFIG elsewhere.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
	}
	configPath := configPathFromEnv()

	if *initConfig {
		if err := config.Save(configPath, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", configPath)
		return
	}

	if err := run(context.Background(), configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func configPathFromEnv() string {
	if p := os.Getenv("MAPSTICK_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	logging.EnableTrace = appCfg.Loop.Trace

	slog.Info("MapStick Started", "version", version.Version)

	st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	prov := config.NewProvider(appCfg, st)
	appCfg.Cinematic.OrbitSpeed = prov.OrbitSpeed(ctx)

	p, origin := profile.NewLoader(st, slog.Default()).Load(ctx, prov.ProfileName(ctx), prov.ProfilePreset(ctx))
	slog.Info("Profile loaded", "name", p.Name, "origin", origin)

	loop := core.NewLoop(appCfg.Loop, slog.Default())
	tr := tracker.New()

	deps, br := initSurfaces(appCfg, loop)
	deps.Post = loop.Post
	deps.Stats = tr

	ctrl := controller.New(appCfg, deps, p)
	defer ctrl.Close()
	if br != nil {
		br.SetHandlers(bridge.Handlers{
			LongPress: ctrl.BeginTargeting,
			Dismiss:   ctrl.Dismiss,
			Command:   ctrl.ExecuteKey,
		})
	}

	ctrl.Restore(controller.Session{
		HighPitch:  prov.HighPitch(ctx),
		FlightMode: inputctx.FlightMode(prov.FlightMode(ctx)),
	})
	ctrl.SetGeolocation(prov.GeolocateZoom(ctx), prov.GeolocateTimeout(ctx))
	loop.AddHandler(ctrl)

	persist := core.NewSessionPersistenceJob(st, persistenceInterval, sessionSnapshot(ctrl), slog.Default())
	persist.Prime(sessionSnapshot(ctrl)())
	loop.AddJob(persist)
	loop.AddJob(core.NewTimeJob("Stats", statsInterval, func(context.Context) {
		logStats(tr.Snapshot())
	}))

	loopDone := make(chan struct{})
	go func() {
		loop.Start(ctx)
		close(loopDone)
	}()

	err = runServer(ctx, appCfg, ctrl, st, prov, tr, loop, br)

	cancel()
	<-loopDone
	persist.Flush(context.Background())
	return err
}

func initDB(appCfg *config.Config) (store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewSQLiteStore(dbConn), nil
}

// initSurfaces picks the camera and gamepad implementations. The bridge is
// created when either of them is served by the map page.
func initSurfaces(cfg *config.Config, loop *core.Loop) (controller.Deps, *bridge.Bridge) {
	start := camera.Pose{
		Center: orb.Point{cfg.Camera.Mock.StartLon, cfg.Camera.Mock.StartLat},
		Zoom:   cfg.Camera.Mock.StartZoom,
	}

	var deps controller.Deps
	var br *bridge.Bridge
	if cfg.Camera.Provider == config.ProviderBridge || cfg.Input.Provider == config.ProviderBridge {
		br = bridge.New(bridge.Config{Start: start, Terrain: cfg.Camera.Mock.Terrain, Post: loop.Post}, slog.Default())
		deps.UI = br
		deps.UISource = br
		deps.Integrations = br
		deps.Geolocator = br
	}

	if cfg.Camera.Provider == config.ProviderBridge {
		deps.Camera = br
		deps.Alive = br.Alive
	} else {
		cam := mockcam.New(mockcam.Config{Start: start, Terrain: cfg.Camera.Mock.Terrain})
		deps.Camera = cam
		loop.AddHandler(core.HandlerFunc{
			ID: "mockcam",
			Fn: func(_ context.Context, _ time.Time, dt float64) {
				cam.Advance(time.Duration(dt * float64(time.Second)))
			},
		})
		slog.Info("Using in-memory camera", "center", start.Center, "zoom", start.Zoom)
	}

	// The hub reports the first connected pad. A bridge pad comes and goes
	// with the browser tab.
	hub := gamepad.NewHub()
	if cfg.Input.Provider == config.ProviderBridge {
		hub.Connect(br)
	} else {
		hub.Connect(gamepad.NewStatic(17, 4))
		slog.Info("Using idle mock gamepad")
	}
	deps.Device = hub
	return deps, br
}

func sessionSnapshot(ctrl *controller.Controller) core.StateSnapshot {
	return func() map[string]string {
		s := ctrl.Session()
		return map[string]string{
			config.KeyHighPitch:  strconv.FormatBool(s.HighPitch),
			config.KeyFlightMode: string(s.FlightMode),
		}
	}
}

func logStats(s tracker.Snapshot) {
	slog.Info("Controller stats",
		"frames", s.Frames,
		"commands", len(s.Commands),
		"unknown_commands", s.UnknownCommands,
		"cancellations", s.Cancellations,
		"geolocation_failures", len(s.GeolocationFailures),
	)
}

func runServer(ctx context.Context, cfg *config.Config, ctrl *controller.Controller, st store.Store, prov config.Provider, tr *tracker.Tracker, loop *core.Loop, br *bridge.Bridge) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	applyGeo := func(zoom float64, timeout time.Duration) {
		loop.Post(func() { ctrl.SetGeolocation(zoom, timeout) })
	}

	var ws http.Handler
	if br != nil {
		ws = br
	}

	srv := api.NewServer(cfg.Server.Address,
		api.NewStateHandler(ctrl, loop.Post),
		api.NewProfileHandler(ctrl, st, slog.Default()),
		api.NewConfigHandler(st, prov, applyGeo),
		api.NewStatsHandler(tr),
		ws,
		shutdownFunc,
	)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
