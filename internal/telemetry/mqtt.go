// Package telemetry publishes viewer stats to an MQTT broker.
package telemetry

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "strings"
    "sync/atomic"
    "time"

    mqtt "github.com/eclipse/paho.mqtt.golang"

    "edgeviewer/internal/version"
)

// Publisher is the part of mqtt.Client the stats loop needs.
type Publisher interface {
    Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config describes where and how often stats go.
type Config struct {
    Broker   string // host:port, or a full URL such as ssl://host:8883
    ClientID string
    Topic    string
    QoS      byte
    Interval time.Duration
}

// Payload is the JSON document published every interval.
type Payload struct {
    Instance string         `json:"instance"`
    Version  string         `json:"version"`
    Time     time.Time      `json:"time"`
    Stats    map[string]any `json:"stats"`
}

// Reporter periodically publishes the result of Collect.
type Reporter struct {
    cfg     Config
    client  Publisher
    collect func() map[string]any

    published atomic.Uint64
    failed    atomic.Uint64
}

// NewReporter returns a reporter publishing through client.
func NewReporter(cfg Config, client Publisher, collect func() map[string]any) *Reporter {
    if cfg.Interval <= 0 { cfg.Interval = 10 * time.Second }
    return &Reporter{cfg: cfg, client: client, collect: collect}
}

// Connect opens an auto-reconnecting paho client for cfg.
func Connect(cfg Config) (mqtt.Client, error) {
    broker := cfg.Broker
    if !strings.Contains(broker, "://") {
        broker = "tcp://" + broker
    }
    opts := mqtt.NewClientOptions()
    opts.AddBroker(broker)
    opts.SetClientID(cfg.ClientID)
    opts.SetAutoReconnect(true)
    opts.SetConnectRetry(true)
    opts.SetConnectRetryInterval(2 * time.Second)
    opts.SetMaxReconnectInterval(30 * time.Second)
    opts.OnConnect = func(mqtt.Client) {
        log.Printf("telemetry: connected to %s as %s", broker, cfg.ClientID)
    }
    opts.OnConnectionLost = func(_ mqtt.Client, err error) {
        log.Printf("telemetry: connection to %s lost, reconnecting: %v", broker, err)
    }

    client := mqtt.NewClient(opts)
    token := client.Connect()
    if !token.WaitTimeout(5 * time.Second) {
        // SetConnectRetry keeps trying in the background.
        log.Printf("telemetry: broker %s not reachable yet, retrying in background", broker)
        return client, nil
    }
    if err := token.Error(); err != nil {
        return nil, fmt.Errorf("telemetry: connect %s: %w", broker, err)
    }
    return client, nil
}

// Run publishes every interval until ctx is done. Publish failures are
// counted and logged, never fatal.
func (r *Reporter) Run(ctx context.Context) error {
    ticker := time.NewTicker(r.cfg.Interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return nil
        case <-ticker.C:
        }
        if err := r.PublishOnce(time.Now()); err != nil {
            if n := r.failed.Load(); n == 1 || n%30 == 0 {
                log.Printf("telemetry: publish failed (%d so far): %v", n, err)
            }
        }
    }
}

// PublishOnce publishes one stats document stamped with now.
func (r *Reporter) PublishOnce(now time.Time) error {
    payload, err := json.Marshal(Payload{
        Instance: r.cfg.ClientID,
        Version:  version.String(),
        Time:     now.UTC(),
        Stats:    r.collect(),
    })
    if err != nil {
        r.failed.Add(1)
        return fmt.Errorf("marshal stats: %w", err)
    }
    token := r.client.Publish(r.cfg.Topic, r.cfg.QoS, false, payload)
    if !token.WaitTimeout(2 * time.Second) {
        r.failed.Add(1)
        return errors.New("publish timeout")
    }
    if err := token.Error(); err != nil {
        r.failed.Add(1)
        return fmt.Errorf("publish: %w", err)
    }
    r.published.Add(1)
    return nil
}

// Stats returns the reporter's own counters.
func (r *Reporter) Stats() map[string]uint64 {
    return map[string]uint64{
        "published": r.published.Load(),
        "failed":    r.failed.Load(),
    }
}
