package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/plugin"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fingerspell: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log, err := logging.Init(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	lib, err := cfg.Library()
	if err != nil {
		return err
	}

	m := metrics.NewManager()
	sessions, err := session.NewManager(st, lib, cfg.RecognizerConfig(),
		session.WithMetrics(m),
		session.WithLogger(logging.Named("session")),
	)
	if err != nil {
		return err
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Infow("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Sessions:  sessions,
		Metrics:   m,
		Logger:    logging.Named("server"),
	})

	if !cfg.CameraEnabled {
		return srv.Run(ctx, cfg.Addr)
	}

	dispatcher, err := newDispatcher(cfg, st)
	if err != nil {
		return err
	}
	go dispatcher.Run(ctx)

	ui := tray.New()
	det := detector.DefaultConfig()
	det.Script = cfg.DetectorScript
	pipeline := app.New(sessions, app.Config{
		CameraID:        cfg.CameraID,
		FrameWidth:      cfg.FrameWidth,
		FrameHeight:     cfg.FrameHeight,
		ChangeThreshold: cfg.ChangeThreshold,
		Targets:         cfg.Practice,
		Detector:        det,
	},
		app.WithDispatcher(dispatcher),
		app.OnUpdate(ui.Update),
		app.WithLogger(logging.Named("app")),
	)
	defer pipeline.Close()

	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("start camera pipeline: %w", err)
	}

	ui.OnToggle(pipeline.SetEnabled)
	ui.OnSettings(func() { openBrowser(cfg.Addr) })
	ui.OnQuit(stop)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(ctx, cfg.Addr)
		ui.Quit()
	}()
	go func() {
		<-ctx.Done()
		ui.Quit()
	}()

	// The tray owns the main thread until it quits.
	ui.Run()
	stop()

	if err := pipeline.Stop(); err != nil {
		log.Warnw("camera pipeline stopped with error", "error", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newDispatcher(cfg *config.Config, st *store.Store) (*plugin.Dispatcher, error) {
	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	opts := []plugin.DispatcherOption{
		plugin.WithBindingSource(app.Bindings{Store: st}),
		plugin.WithDispatchLogger(logging.Named("dispatch")),
	}
	if cfg.OutputPlugin != "" {
		opts = append(opts, plugin.WithOutput(cfg.OutputPlugin, cfg.OutputAction))
	}
	return plugin.NewDispatcher(plugins, plugin.NewExecutor(0), opts...), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.fingerspell/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".fingerspell", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}

func openBrowser(addr string) {
	url := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		url = "http://" + addr
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logging.L().Warnw("failed to open browser", "url", url, "error", err)
	}
}
