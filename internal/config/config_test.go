package config

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), "edgeviewer.yaml")
    require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
    return path
}

func TestDefaultIsValid(t *testing.T) {
    cfg := Default()
    require.NoError(t, Validate(cfg))
    assert.Equal(t, 640, cfg.Camera.Width)
    assert.Equal(t, 480, cfg.Camera.Height)
    assert.Equal(t, "edges", cfg.Transform)
    assert.Empty(t, cfg.MQTT.Topic, "no topic without a broker")
}

func TestLoadOverlaysDefaults(t *testing.T) {
    path := writeFile(t, `
instance_id: bench-1
camera:
  source: webcam
  device: /dev/video2
  width: 320
  height: 240
mqtt:
  broker: localhost:1883
`)
    cfg, err := Load(path)
    require.NoError(t, err)
    assert.Equal(t, "bench-1", cfg.InstanceID)
    assert.Equal(t, "/dev/video2", cfg.Camera.Device)
    assert.Equal(t, 320, cfg.Camera.Width)
    assert.Equal(t, 30, cfg.Camera.FPS, "unset keys keep their defaults")
    assert.Equal(t, 8000, cfg.HTTP.Port)
    assert.Equal(t, "edgeviewer/stats/bench-1", cfg.MQTT.Topic)
    assert.Equal(t, 10, cfg.MQTT.IntervalS)
}

func TestLoadErrors(t *testing.T) {
    _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
    assert.ErrorContains(t, err, "failed to read")

    _, err = Load(writeFile(t, "camera: [1, 2"))
    assert.ErrorContains(t, err, "failed to parse")

    _, err = Load(writeFile(t, "camera:\n  width: 641\n"))
    assert.ErrorContains(t, err, "invalid configuration")
}

func TestValidate(t *testing.T) {
    tests := []struct {
        name   string
        mutate func(*Config)
        ok     bool
    }{
        {"default", func(*Config) {}, true},
        {"no instance", func(c *Config) { c.InstanceID = "" }, false},
        {"unknown source", func(c *Config) { c.Camera.Source = "rtsp" }, false},
        {"odd height", func(c *Config) { c.Camera.Height = 479 }, false},
        {"zero width", func(c *Config) { c.Camera.Width = 0 }, false},
        {"webcam without device", func(c *Config) { c.Camera.Source = "webcam"; c.Camera.Device = "" }, false},
        {"bad port", func(c *Config) { c.HTTP.Port = 70000 }, false},
        {"bad qos", func(c *Config) { c.MQTT.Broker = "x:1883"; c.MQTT.QoS = 3 }, false},
        {"http disabled", func(c *Config) { c.HTTP.Port = 0 }, true},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            cfg := Default()
            tt.mutate(cfg)
            err := Validate(cfg)
            if tt.ok {
                assert.NoError(t, err)
            } else {
                assert.Error(t, err)
            }
        })
    }
}

func TestApplyEnv(t *testing.T) {
    env := map[string]string{
        "CAMERA_SOURCE": "webcam",
        "VIDEO_WIDTH":   "1280",
        "VIDEO_HEIGHT":  "oops",
        "PORT":          "9000",
        "PREVIEW":       "false",
        "ICE_SERVERS":   "stun:a:3478,stun:b:3478",
        "MQTT_BROKER":   "broker:1883",
    }
    cfg := Default()
    cfg.ApplyEnv(func(k string) string { return env[k] })
    assert.Equal(t, "webcam", cfg.Camera.Source)
    assert.Equal(t, 1280, cfg.Camera.Width)
    assert.Equal(t, 480, cfg.Camera.Height)
    assert.Equal(t, 9000, cfg.HTTP.Port)
    assert.False(t, cfg.Preview.Enabled)
    assert.Equal(t, []string{"stun:a:3478", "stun:b:3478"}, cfg.HTTP.ICEServers)
    assert.Equal(t, "broker:1883", cfg.MQTT.Broker)
}
