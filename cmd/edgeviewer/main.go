package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "golang.org/x/sync/errgroup"

    "edgeviewer/internal/capture"
    "edgeviewer/internal/config"
    "edgeviewer/internal/handoff"
    "edgeviewer/internal/process"
    "edgeviewer/internal/server"
    "edgeviewer/internal/stream"
    "edgeviewer/internal/telemetry"
    "edgeviewer/internal/version"
)

// display is the render surface host. Run must be called on the main
// goroutine; Close after every producer has stopped.
type display interface {
    capture.Sink
    Run(ctx context.Context) error
    Stats() any
    Close()
}

func main() {
    configPath := flag.String("config", getEnv("EDGEVIEWER_CONFIG", ""), "optional YAML config file")
    host := flag.String("host", "", "bind host")
    port := flag.Int("port", 0, "bind port, 0 keeps the configured one")
    fps := flag.Int("fps", 0, "camera fps")
    width := flag.Int("width", 0, "capture width")
    height := flag.Int("height", 0, "capture height")
    source := flag.String("source", "", "camera source: synthetic or webcam")
    device := flag.String("device", "", "V4L2 device for the webcam source")
    transform := flag.String("transform", "", fmt.Sprintf("frame transform %v", process.Names()))
    broker := flag.String("mqtt", "", "MQTT broker host:port for stats")
    noPreview := flag.Bool("no-preview", false, "disable the WHEP remote preview")
    showVersion := flag.Bool("version", false, "print version and exit")
    flag.Parse()

    if *showVersion {
        fmt.Println(version.String())
        return
    }

    cfg := config.Default()
    if *configPath != "" {
        loaded, err := config.Load(*configPath)
        if err != nil {
            log.Fatalf("config: %v", err)
        }
        cfg = loaded
    }
    cfg.ApplyEnv(os.Getenv)
    if *host != "" { cfg.HTTP.Host = *host }
    if *port != 0 { cfg.HTTP.Port = *port }
    if *fps != 0 { cfg.Camera.FPS = *fps }
    if *width != 0 { cfg.Camera.Width = *width }
    if *height != 0 { cfg.Camera.Height = *height }
    if *source != "" { cfg.Camera.Source = *source }
    if *device != "" { cfg.Camera.Device = *device }
    if *transform != "" { cfg.Transform = *transform }
    if *broker != "" { cfg.MQTT.Broker = *broker }
    if *noPreview { cfg.Preview.Enabled = false }
    if err := config.Validate(cfg); err != nil {
        log.Fatalf("config: %v", err)
    }

    if err := run(cfg); err != nil {
        log.Fatalf("%s: %v", version.Name, err)
    }
}

func run(cfg *config.Config) error {
    log.Printf("%s starting (%s source %dx%d, transform %s)", version.String(), cfg.Camera.Source, cfg.Camera.Width, cfg.Camera.Height, cfg.Transform)

    tr, err := process.ByName(cfg.Transform)
    if err != nil {
        return err
    }
    slot := &handoff.Slot{}
    disp, err := newDisplay(cfg, slot)
    if err != nil {
        return err
    }
    defer disp.Close()

    orch, err := capture.New(capture.Config{Open: sourceOpener(cfg.Camera), Transform: tr, Sink: disp})
    if err != nil {
        return err
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    ctx, cancel := context.WithCancel(ctx)
    defer cancel()

    var preview *stream.Preview
    if cfg.Preview.Enabled {
        preview = stream.NewPreview(stream.EncoderConfig{
            Width:  cfg.Camera.Width,
            Height: cfg.Camera.Height,
            FPS:    cfg.Preview.FPS,
            Frames: slot,
            FFmpeg: cfg.Preview.FFmpeg,
        }, nil)
        defer preview.Close()
    }

    var reporter *telemetry.Reporter
    stats := func() map[string]any {
        out := map[string]any{
            "capture": orch.Counters(),
            "slot":    slot.Stats(),
            "render":  disp.Stats(),
            "stream":  stream.GetCounters(),
        }
        if preview != nil { out["preview_viewers"] = preview.Viewers() }
        if reporter != nil { out["telemetry"] = reporter.Stats() }
        return out
    }

    session, err := orch.Start(ctx)
    if err != nil {
        return err
    }

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        select {
        case <-gctx.Done():
            return nil
        case <-session.Done():
            if err := session.Err(); err != nil {
                return fmt.Errorf("capture: %w", err)
            }
            return nil
        }
    })

    if cfg.HTTP.Port > 0 {
        srv := server.New(server.Config{Preview: preview, Frames: slot, Stats: stats, ICEServers: cfg.HTTP.ICEServers})
        mux := http.NewServeMux()
        srv.RegisterRoutes(mux)
        hs := &http.Server{
            Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
            Handler:           mux,
            ReadHeaderTimeout: 10 * time.Second,
        }
        g.Go(func() error {
            log.Printf("HTTP server listening on http://%s", hs.Addr)
            if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
                return fmt.Errorf("http: %w", err)
            }
            return nil
        })
        g.Go(func() error {
            <-gctx.Done()
            srv.Close()
            sctx, scancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutS)*time.Second)
            defer scancel()
            return hs.Shutdown(sctx)
        })
    }

    if cfg.MQTT.Broker != "" {
        tcfg := telemetry.Config{
            Broker:   cfg.MQTT.Broker,
            ClientID: cfg.InstanceID,
            Topic:    cfg.MQTT.Topic,
            QoS:      cfg.MQTT.QoS,
            Interval: time.Duration(cfg.MQTT.IntervalS) * time.Second,
        }
        client, err := telemetry.Connect(tcfg)
        if err != nil {
            log.Printf("telemetry disabled: %v", err)
        } else {
            defer client.Disconnect(250)
            reporter = telemetry.NewReporter(tcfg, client, stats)
            g.Go(func() error { return reporter.Run(gctx) })
        }
    }

    // The display owns the main goroutine until the window closes or a
    // component fails.
    runErr := disp.Run(gctx)
    cancel()
    session.Stop()
    if err := g.Wait(); err != nil {
        return err
    }
    log.Printf("%s stopped", version.Name)
    return runErr
}

func sourceOpener(cc config.CameraConfig) func() (capture.Source, error) {
    if cc.Source == "webcam" {
        return func() (capture.Source, error) {
            cam, err := capture.OpenWebcam(capture.WebcamConfig{
                Device:     cc.Device,
                Width:      cc.Width,
                Height:     cc.Height,
                Format:     cc.Format,
                Buffers:    uint32(cc.Buffers),
                TimeoutSec: uint32(cc.TimeoutS),
            })
            if err != nil {
                return nil, err
            }
            return cam, nil
        }
    }
    return func() (capture.Source, error) {
        layout, err := capture.ParseLayout(cc.Layout)
        if err != nil {
            return nil, err
        }
        syn, err := capture.NewSynthetic(capture.SyntheticConfig{Width: cc.Width, Height: cc.Height, FPS: cc.FPS, Layout: layout})
        if err != nil {
            return nil, err
        }
        return syn, nil
    }
}

func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}
