//go:build gl

package main

import (
    "context"
    "fmt"
    "log"
    "runtime"

    "github.com/go-gl/glfw/v3.3/glfw"

    "edgeviewer/internal/config"
    "edgeviewer/internal/handoff"
    "edgeviewer/internal/render"
    "edgeviewer/internal/render/glcore"
)

// GLFW and the GL context must stay on the main thread.
func init() { runtime.LockOSThread() }

// window hosts a render.Pipeline in a GLFW window and draws only when a
// frame or an expose event asks for it.
type window struct {
    win      *glfw.Window
    gl       *glcore.Context
    pipeline *render.Pipeline
    requests *render.Requests
}

func newDisplay(cfg *config.Config, slot *handoff.Slot) (display, error) {
    if err := glfw.Init(); err != nil {
        return nil, fmt.Errorf("glfw init: %w", err)
    }
    glfw.WindowHint(glfw.ContextVersionMajor, 4)
    glfw.WindowHint(glfw.ContextVersionMinor, 1)
    glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
    glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
    win, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
    if err != nil {
        glfw.Terminate()
        return nil, fmt.Errorf("glfw window: %w", err)
    }
    win.MakeContextCurrent()
    glfw.SwapInterval(1)

    ctx, err := glcore.New()
    if err != nil {
        win.Destroy()
        glfw.Terminate()
        return nil, err
    }
    log.Printf("display: OpenGL %s", ctx.Version())

    w := &window{win: win, gl: ctx, requests: render.NewRequests()}
    w.requests.Wake = glfw.PostEmptyEvent
    w.pipeline = render.New(ctx, slot, render.WithRequester(w.requests))
    win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
        w.pipeline.OnSurfaceChanged(width, height)
        w.pipeline.RequestRender()
    })
    win.SetRefreshCallback(func(*glfw.Window) { w.pipeline.RequestRender() })
    return w, nil
}

func (w *window) UpdateFrame(data []byte, width, height int) {
    w.pipeline.UpdateFrame(data, width, height)
}

// Run pumps window events until the window is closed or ctx is done.
func (w *window) Run(ctx context.Context) error {
    w.pipeline.OnSurfaceCreated()
    w.pipeline.OnSurfaceChanged(w.win.GetFramebufferSize())
    w.pipeline.RequestRender()
    for !w.win.ShouldClose() && ctx.Err() == nil {
        glfw.WaitEventsTimeout(0.1)
        if w.requests.Pending() {
            w.pipeline.OnDrawFrame()
            w.win.SwapBuffers()
        }
    }
    w.pipeline.OnSurfaceDestroyed()
    return nil
}

func (w *window) Stats() any { return w.pipeline.Stats() }

// Close tears the window down. Producers must have stopped: waking the
// event loop after Terminate is an error in GLFW.
func (w *window) Close() {
    w.pipeline.SetRequester(nil)
    w.gl.Close()
    w.win.Destroy()
    glfw.Terminate()
}
