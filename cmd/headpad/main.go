// Command headpad turns head movement seen by a webcam into joystick
// input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ayusman/headpad/internal/app"
	"github.com/ayusman/headpad/internal/config"
	"github.com/ayusman/headpad/internal/device"
	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/server"
	"github.com/ayusman/headpad/internal/store"
	"github.com/ayusman/headpad/internal/tray"
)

type options struct {
	configPath string
	addr       string
	camera     int
	sink       string
	headless   bool
	logLevel   string
	dbPath     string
	pluginDir  string
	webDir     string
	saveConfig bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", config.DefaultPath(), "settings file")
	flag.StringVar(&o.addr, "addr", "", "HTTP listen address, empty disables the server")
	flag.IntVar(&o.camera, "camera", -1, "camera device id")
	flag.StringVar(&o.sink, "sink", "", "comma separated output sinks: log, uinput, mqtt, serial, stdout")
	flag.BoolVar(&o.headless, "headless", false, "run without the tray icon")
	flag.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&o.dbPath, "db", "", "database path")
	flag.StringVar(&o.pluginDir, "plugins", "", "plugin directory")
	flag.StringVar(&o.webDir, "web", "", "dashboard directory")
	flag.BoolVar(&o.saveConfig, "save-config", false, "write the effective settings back to -config and exit")
	flag.Parse()
	return o
}

// apply overrides settings with the flags that were set.
func (o options) apply(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = o.addr
		case "camera":
			cfg.Camera.DeviceID = o.camera
		case "sink":
			cfg.Device.Kinds = device.ParseKinds(o.sink)
		case "log-level":
			cfg.LogLevel = o.logLevel
		case "db":
			cfg.DBPath = o.dbPath
		case "plugins":
			cfg.PluginDir = o.pluginDir
		}
	})
}

func main() {
	if err := run(parseFlags()); err != nil {
		log.Error("headpad failed", "err", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	if o.saveConfig {
		if err := cfg.Save(o.configPath); err != nil {
			return err
		}
		fmt.Println("settings written to", o.configPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	a, err := app.New(app.Options{Settings: cfg, Store: st})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown incomplete", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}()

	if cfg.Addr != "" {
		webDir := o.webDir
		if webDir == "" {
			webDir = findWebDir()
		}
		srv := server.New(server.Config{
			StaticDir: webDir,
			App:       a,
			Store:     st,
			Plugins:   a.Plugins().Manager(),
			Frames:    a.Frames(),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
				log.Error("http server failed", "addr", cfg.Addr, "err", err)
			}
		}()
	}

	if o.headless {
		<-ctx.Done()
	} else {
		runTray(ctx, stop, a, cfg.Addr)
	}

	wg.Wait()
	return runErr
}

// runTray blocks on the tray until quit or ctx is done.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnRecalibrate(a.RequestCalibration)
	t.OnRecenter(func() {
		if !a.Recenter() {
			log.Warn("recenter ignored, not calibrated")
		}
	})
	t.OnQuit(stop)
	if addr != "" {
		t.OnDashboard(func() { openBrowser(dashboardURL(addr)) })
	}

	frames, unsubscribe := a.Subscribe(1)
	go func() {
		defer unsubscribe()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case res, ok := <-frames:
				if !ok {
					return
				}
				t.SetDirection(res)
			case <-ticker.C:
				if g := a.Status().LastGesture; g != nil {
					t.SetLastGesture(g.Gesture)
				}
			}
		}
	}()

	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
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
		log.Warn("failed to open browser", "url", url, "err", err)
		return
	}
	go cmd.Wait()
}

// findWebDir returns the first existing dashboard directory among web,
// ../web and ~/.headpad/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", filepath.Join(config.Dir(), "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
