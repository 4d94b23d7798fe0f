package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"faderbridge/lib/api"
	"faderbridge/lib/clock"
	"faderbridge/lib/config"
	"faderbridge/lib/loop"
	_ "faderbridge/lib/midimixer"
	"faderbridge/lib/mixer"
	_ "faderbridge/lib/oscmixer"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
	"faderbridge/lib/streamdeck"
	"faderbridge/lib/xtouch"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $"+config.EnvPath+")")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: *debug}))
	slog.SetDefault(log)

	if err := run(config.Path(*configPath), *debug, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, debug bool, log *slog.Logger) error {
	defer midi.CloseDriver()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if path != "" {
		log.Info("config loaded", "path", path)
	}
	if cfg.PresetDir != "" {
		names, err := protocol.LoadDir(cfg.PresetDir)
		if err != nil {
			return err
		}
		log.Info("presets loaded", "dir", cfg.PresetDir, "presets", names)
	}

	store := state.NewStore(state.New(cfg.Layout()))
	lp := loop.New(0)
	lp.Start()
	defer lp.Close()
	sched := clock.Looped{Loop: lp}

	var conns []*mixer.Connection
	for i, mc := range cfg.Mixers {
		desc, ok := protocol.Resolve(mc.Protocol)
		if !ok {
			log.Warn("unknown protocol, using default", "mixer", i, "protocol", mc.Protocol, "default", desc.Name)
		}
		conn := mixer.NewConnection(mixer.Config{
			Mixer:    i,
			Store:    store,
			Protocol: desc,
			Loop:     lp,
			Sched:    sched,
			Settings: cfg.Fade(),
			Log:      log,
		})
		a, err := mixer.Open(desc, mc.Endpoint(), conn, log)
		if err != nil {
			log.Warn("mixer unavailable, running without it", "mixer", i, "protocol", desc.Name, "error", err)
		} else {
			conn.Attach(a)
		}
		conns = append(conns, conn)
	}

	proto, _ := protocol.Resolve(protocol.DefaultPreset)
	if len(conns) > 0 {
		proto = conns[0].Protocol()
	}
	hub := mixer.NewHub(store, proto, lp, log, conns...)
	defer hub.Close()
	for _, c := range conns {
		c.Sync()
	}

	for _, xc := range cfg.XTouch {
		stop, err := startXTouch(xc, hub, store, proto, log)
		if err != nil {
			log.Warn("x-touch unavailable", "port", xc.Port, "error", err)
			continue
		}
		defer stop()
	}
	if cfg.StreamDeck.Enabled {
		stop, err := startStreamDeck(cfg.StreamDeck, hub, store, proto, log)
		if err != nil {
			log.Warn("stream deck unavailable", "error", err)
		} else {
			defer stop()
		}
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{Addr: cfg.Listen, Handler: api.New(store, hub, log).Router()}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutting down", "signal", s)
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func startXTouch(xc config.XTouch, hub *mixer.Hub, store *state.Store, proto *protocol.MixerProtocol, log *slog.Logger) (func(), error) {
	in, err := xtouch.FindInPort(xc.Port)
	if err != nil {
		return nil, err
	}
	outPort, err := xtouch.FindOutPort(xc.Port)
	if err != nil {
		return nil, err
	}
	out, err := xtouch.NewOutput(outPort, xtouch.DeviceIDExtender)
	if err != nil {
		return nil, err
	}
	panel := xtouch.NewPanel(out, hub, store, proto, xc.First, log)
	if err := panel.Refresh(); err != nil {
		log.Warn("x-touch refresh", "error", err)
	}
	stop, err := midi.ListenTo(in, panel.Receive)
	if err != nil {
		return nil, fmt.Errorf("xtouch: listen: %w", err)
	}
	hub.AddRemote(panel)
	log.Info("x-touch attached", "port", in.String(), "first", xc.First)
	return stop, nil
}

func startStreamDeck(sc config.StreamDeck, hub *mixer.Hub, store *state.Store, proto *protocol.MixerProtocol, log *slog.Logger) (func(), error) {
	dev, err := streamdeck.Open()
	if err != nil {
		return nil, err
	}
	if err := dev.SetBrightness(byte(sc.Brightness)); err != nil {
		log.Warn("stream deck brightness", "error", err)
	}
	panel := streamdeck.NewPanel(dev, hub, store, proto, sc.First, log)
	if err := panel.Refresh(); err != nil {
		log.Warn("stream deck refresh", "error", err)
	}
	events := make(chan streamdeck.InputEvent, 16)
	go func() {
		defer close(events)
		if err := dev.ReadInput(events); err != nil {
			log.Warn("stream deck input stopped", "error", err)
		}
	}()
	go panel.Run(events)
	hub.AddRemote(panel)
	log.Info("stream deck attached", "model", dev.Model().Name, "serial", dev.SerialNumber(), "first", sc.First)
	return func() { dev.Close() }, nil
}
