//go:build !gl

package main

import (
    "context"
    "log"

    "edgeviewer/internal/capture"
    "edgeviewer/internal/config"
    "edgeviewer/internal/handoff"
)

// headless keeps frames in the slot for the HTTP surface only.
type headless struct {
    capture.SlotSink
}

func newDisplay(cfg *config.Config, slot *handoff.Slot) (display, error) {
    log.Printf("display: built without the gl tag, running headless")
    return &headless{SlotSink: capture.SlotSink{Slot: slot}}, nil
}

func (h *headless) Run(ctx context.Context) error {
    <-ctx.Done()
    return nil
}

func (h *headless) Stats() any { return map[string]string{"state": "headless"} }

func (h *headless) Close() {}
