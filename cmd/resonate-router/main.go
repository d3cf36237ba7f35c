// ABOUTME: Entry point for the Resonate router daemon
// ABOUTME: Parses CLI flags, applies startup config and serves the control API
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/config"
	"github.com/Resonate-Protocol/resonate-router/internal/control"
	"github.com/Resonate-Protocol/resonate-router/internal/discovery"
	"github.com/Resonate-Protocol/resonate-router/internal/modules"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/internal/source"
	"github.com/Resonate-Protocol/resonate-router/internal/ui"
	"github.com/Resonate-Protocol/resonate-router/internal/version"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio/output"
)

var (
	port          = flag.Int("port", 8927, "Control server port")
	name          = flag.String("name", "", "Router friendly name (default: hostname-resonate-router)")
	logFile       = flag.String("log-file", "resonate-router.log", "Log file path")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI        = flag.Bool("tui", false, "Show the status TUI instead of streaming logs")
	configFile    = flag.String("config", "", "YAML startup config (hardware sinks, modules, default sink)")
	audioFile     = flag.String("audio", "", "Audio to play into the default sink (MP3, FLAC, URL or 'tone')")
	outputName    = flag.String("output", output.BackendOto, "Hardware sink backend (oto, memory)")
	hwSinks       = flag.String("hw-sinks", "", "Comma-separated hardware sinks to create at startup")
	companionArgs = flag.String("companion", "", "Argument string for load-module-per-hardware-sink")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if *useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	logger := log.Default()

	startup := &config.Startup{}
	if *configFile != "" {
		startup, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	startup.HardwareSinks = append(startup.HardwareSinks, splitList(*hwSinks)...)
	if *companionArgs != "" {
		startup.Modules = append(startup.Modules, config.Module{Name: modules.CompanionName, Args: *companionArgs})
	}
	if err := startup.Validate(); err != nil {
		log.Fatalf("Invalid startup: %v", err)
	}

	routerName := *name
	if routerName == "" {
		routerName = startup.Name
	}
	if routerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		routerName = fmt.Sprintf("%s-resonate-router", hostname)
	}

	log.Printf("Starting %s: %s on port %d", version.String(), routerName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)

	newBackend := func(string) (output.Output, error) {
		return output.New(*outputName)
	}

	r := router.NewServer(router.ServerConfig{Name: routerName, Debug: *debug, Logger: logger})
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = r.Do(ctx, func(c *router.Core) error {
		modules.Register(c, modules.Options{Logger: logger, Debug: *debug})
		return startup.Apply(c, newBackend)
	})
	cancel()
	if err != nil {
		r.Stop()
		log.Fatalf("Startup failed: %v", err)
	}

	ctl := control.NewServer(r, control.Config{
		Port:       *port,
		Debug:      *debug,
		Logger:     logger,
		NewBackend: newBackend,
	})
	go func() {
		if err := ctl.Start(); err != nil {
			log.Printf("Control server error: %v", err)
		}
	}()

	var disc *discovery.Manager
	if !*noMDNS {
		disc = discovery.NewManager(discovery.Config{
			ServiceName: routerName,
			Port:        *port,
			Path:        control.Path,
			Logger:      logger,
		})
		if err := disc.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
	}

	var player *source.Player
	audioTitle := ""
	if *audioFile != "" {
		path := *audioFile
		if path == "tone" {
			path = ""
		}
		src, err := source.New(path)
		if err != nil {
			log.Fatalf("Failed to open audio: %v", err)
		}
		title, artist, _ := src.Metadata()
		audioTitle = title
		if artist != "" {
			audioTitle = artist + " - " + title
		}

		player = source.NewPlayer(r, src, source.PlayerConfig{Debug: *debug, Logger: logger})
		go player.Run(context.Background())
		log.Printf("Playing %s into the default sink", audioTitle)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *useTUI {
		tui := ui.New()
		go func() {
			if err := tui.Start(ui.Status{Port: *port, AudioTitle: audioTitle}); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		feedCtx, stopFeed := context.WithCancel(context.Background())
		go feedTUI(feedCtx, r, ctl, tui, *port, audioTitle)

		select {
		case <-tui.QuitChan():
			log.Printf("Received quit signal from TUI")
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down gracefully...", sig)
		}
		stopFeed()
		tui.Stop()
	} else {
		log.Printf("Press Ctrl-C to stop")
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
	}

	if player != nil {
		player.Stop()
	}
	if disc != nil {
		disc.Stop()
	}
	ctl.Stop()
	r.Stop()

	log.Printf("Router stopped")
}

// feedTUI forwards router state changes to the status view
func feedTUI(ctx context.Context, r *router.Server, ctl *control.Server, tui *ui.TUI, port int, audioTitle string) {
	updates := r.Subscribe()
	defer r.Unsubscribe(updates)

	snapCtx, cancel := context.WithTimeout(ctx, time.Second)
	st, err := r.Snapshot(snapCtx)
	cancel()
	if err == nil {
		tui.Update(ui.Status{Router: st, Port: port, Clients: ctl.ClientCount(), AudioTitle: audioTitle})
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return
			}
			st = s
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		tui.Update(ui.Status{Router: st, Port: port, Clients: ctl.ClientCount(), AudioTitle: audioTitle})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
