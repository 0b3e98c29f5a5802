// Package config loads the viewer configuration: built-in defaults, an
// optional YAML file, then environment overrides.
package config

import (
    "fmt"
    "os"
    "strconv"
    "strings"

    "gopkg.in/yaml.v3"
)

// Config is the complete viewer configuration.
type Config struct {
    InstanceID       string        `yaml:"instance_id"`
    ShutdownTimeoutS int           `yaml:"shutdown_timeout_s"`
    Transform        string        `yaml:"transform"` // edges, color
    Camera           CameraConfig  `yaml:"camera"`
    HTTP             HTTPConfig    `yaml:"http"`
    Preview          PreviewConfig `yaml:"preview"`
    Window           WindowConfig  `yaml:"window"`
    MQTT             MQTTConfig    `yaml:"mqtt"`
}

// CameraConfig selects and sizes the capture source.
type CameraConfig struct {
    Source   string `yaml:"source"` // synthetic, webcam
    Device   string `yaml:"device"`
    Width    int    `yaml:"width"`
    Height   int    `yaml:"height"`
    FPS      int    `yaml:"fps"`
    Format   string `yaml:"format"`  // webcam fourcc; empty picks the first supported
    Layout   string `yaml:"layout"`  // synthetic memory layout: I420, YV12, NV12, NV21
    Buffers  int    `yaml:"buffers"` // webcam driver buffers
    TimeoutS int    `yaml:"timeout_s"`
}

// HTTPConfig is the status and remote preview listener.
type HTTPConfig struct {
    Host       string   `yaml:"host"`
    Port       int      `yaml:"port"` // 0 disables the listener
    ICEServers []string `yaml:"ice_servers"`
}

// PreviewConfig controls the WHEP encoder.
type PreviewConfig struct {
    Enabled bool   `yaml:"enabled"`
    FPS     int    `yaml:"fps"`
    FFmpeg  string `yaml:"ffmpeg"`
}

// WindowConfig is the desktop render surface.
type WindowConfig struct {
    Title  string `yaml:"title"`
    Width  int    `yaml:"width"`
    Height int    `yaml:"height"`
}

// MQTTConfig enables periodic stats publishing when Broker is set.
type MQTTConfig struct {
    Broker    string `yaml:"broker"`
    Topic     string `yaml:"topic"`
    IntervalS int    `yaml:"interval_s"`
    QoS       byte   `yaml:"qos"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
    return &Config{
        InstanceID:       "edgeviewer",
        ShutdownTimeoutS: 3,
        Transform:        "edges",
        Camera: CameraConfig{
            Source:   "synthetic",
            Device:   "/dev/video0",
            Width:    640,
            Height:   480,
            FPS:      30,
            Layout:   "I420",
            Buffers:  2,
            TimeoutS: 5,
        },
        HTTP:    HTTPConfig{Host: "0.0.0.0", Port: 8000},
        Preview: PreviewConfig{Enabled: true, FPS: 30, FFmpeg: "ffmpeg"},
        Window:  WindowConfig{Title: "edgeviewer", Width: 640, Height: 480},
        MQTT:    MQTTConfig{IntervalS: 10},
    }
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("failed to read config file: %w", err)
    }
    cfg := Default()
    if err := yaml.Unmarshal(data, cfg); err != nil {
        return nil, fmt.Errorf("failed to parse config: %w", err)
    }
    if err := Validate(cfg); err != nil {
        return nil, fmt.Errorf("invalid configuration: %w", err)
    }
    return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with
// getenv; unset or malformed values leave the field alone.
func (c *Config) ApplyEnv(getenv func(string) string) {
    str := func(key string, dst *string) {
        if v := getenv(key); v != "" { *dst = v }
    }
    num := func(key string, dst *int) {
        if v := getenv(key); v != "" {
            if n, err := strconv.Atoi(v); err == nil { *dst = n }
        }
    }
    str("INSTANCE_ID", &c.InstanceID)
    str("TRANSFORM", &c.Transform)
    str("CAMERA_SOURCE", &c.Camera.Source)
    str("CAMERA_DEVICE", &c.Camera.Device)
    str("CAMERA_FORMAT", &c.Camera.Format)
    str("CAMERA_LAYOUT", &c.Camera.Layout)
    num("VIDEO_WIDTH", &c.Camera.Width)
    num("VIDEO_HEIGHT", &c.Camera.Height)
    num("FPS", &c.Camera.FPS)
    str("HOST", &c.HTTP.Host)
    num("PORT", &c.HTTP.Port)
    if v := getenv("ICE_SERVERS"); v != "" {
        c.HTTP.ICEServers = strings.Split(v, ",")
    }
    if v := getenv("PREVIEW"); v != "" {
        if b, err := strconv.ParseBool(v); err == nil { c.Preview.Enabled = b }
    }
    str("FFMPEG", &c.Preview.FFmpeg)
    str("MQTT_BROKER", &c.MQTT.Broker)
    str("MQTT_TOPIC", &c.MQTT.Topic)
    num("MQTT_INTERVAL_S", &c.MQTT.IntervalS)
}

// Validate checks the configuration and fills derived defaults.
func Validate(cfg *Config) error {
    if cfg.InstanceID == "" {
        return fmt.Errorf("instance_id is required")
    }
    switch cfg.Camera.Source {
    case "synthetic", "webcam":
    default:
        return fmt.Errorf("camera.source must be synthetic or webcam, got %q", cfg.Camera.Source)
    }
    if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 || cfg.Camera.Width%2 != 0 || cfg.Camera.Height%2 != 0 {
        return fmt.Errorf("camera size %dx%d must be even and positive", cfg.Camera.Width, cfg.Camera.Height)
    }
    if cfg.Camera.FPS < 0 {
        return fmt.Errorf("camera.fps must be >= 0")
    }
    if cfg.Camera.Source == "webcam" && cfg.Camera.Device == "" {
        return fmt.Errorf("camera.device is required for the webcam source")
    }
    if cfg.Camera.Buffers <= 0 { cfg.Camera.Buffers = 2 }
    if cfg.Camera.TimeoutS <= 0 { cfg.Camera.TimeoutS = 5 }
    if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
        return fmt.Errorf("http.port %d out of range", cfg.HTTP.Port)
    }
    if cfg.Preview.FPS <= 0 { cfg.Preview.FPS = 30 }
    if cfg.Preview.FFmpeg == "" { cfg.Preview.FFmpeg = "ffmpeg" }
    if cfg.Window.Width <= 0 { cfg.Window.Width = cfg.Camera.Width }
    if cfg.Window.Height <= 0 { cfg.Window.Height = cfg.Camera.Height }
    if cfg.MQTT.Broker != "" {
        if cfg.MQTT.Topic == "" {
            cfg.MQTT.Topic = fmt.Sprintf("edgeviewer/stats/%s", cfg.InstanceID)
        }
        if cfg.MQTT.IntervalS <= 0 { cfg.MQTT.IntervalS = 10 }
        if cfg.MQTT.QoS > 2 {
            return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
        }
    }
    if cfg.ShutdownTimeoutS <= 0 { cfg.ShutdownTimeoutS = 3 }
    return nil
}
