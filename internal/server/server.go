package server

import (
    "encoding/json"
    "errors"
    "fmt"
    "image"
    "image/jpeg"
    "io"
    "log"
    "net/http"
    "strings"
    "sync"

    "github.com/google/uuid"
    "github.com/pion/webrtc/v3"

    "edgeviewer/internal/handoff"
    "edgeviewer/internal/stream"
    "edgeviewer/internal/version"
)

// Config wires the HTTP surface to the rest of the viewer.
type Config struct {
    // Preview encodes the processed frames for remote viewers; nil
    // disables /whep.
    Preview    *stream.Preview
    // Frames backs /snapshot.jpg.
    Frames     stream.Frames
    // Stats backs /stats.
    Stats      func() map[string]any
    ICEServers []string
}

type Server struct {
    cfg      Config
    mu       sync.Mutex
    sessions map[string]*session
}

type session struct {
    pc     *webrtc.PeerConnection
    detach func()
}

func New(cfg Config) *Server {
    return &Server{cfg: cfg, sessions: map[string]*session{}}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/whep", s.handleWHEPPost)
    mux.HandleFunc("/whep/", s.handleWHEPResource)
    mux.HandleFunc("/health", s.handleHealth)
    mux.HandleFunc("/stats", s.handleStats)
    mux.HandleFunc("/snapshot.jpg", s.handleSnapshot)
    mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/" {
            http.NotFound(w, r)
            return
        }
        w.Header().Set("Content-Type", "text/html; charset=utf-8")
        io.WriteString(w, indexHTML)
    })
}

// Sessions returns the number of open WHEP sessions.
func (s *Server) Sessions() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.sessions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{
        "status":   "ok",
        "version":  version.String(),
        "sessions": s.Sessions(),
    })
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
    allowCORS(w, r)
    out := map[string]any{}
    if s.cfg.Stats != nil {
        out = s.cfg.Stats()
    }
    if out == nil {
        out = map[string]any{}
    }
    out["whep_sessions"] = s.Sessions()
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet && r.Method != http.MethodHead {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if s.cfg.Frames == nil {
        http.Error(w, "no frame source", http.StatusNotFound)
        return
    }
    f, ok := s.cfg.Frames.TakeLatest()
    if !ok {
        http.Error(w, "no frame yet", http.StatusNotFound)
        return
    }
    img, err := frameImage(f)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "image/jpeg")
    w.Header().Set("Cache-Control", "no-store")
    if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 85}); err != nil {
        log.Printf("snapshot: encode: %v", err)
    }
}

// frameImage wraps an RGBA frame without copying; frames are immutable.
func frameImage(f handoff.Frame) (*image.RGBA, error) {
    if f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height*4 {
        return nil, fmt.Errorf("frame %d is not %dx%d RGBA (%d bytes)", f.Seq, f.Width, f.Height, len(f.Data))
    }
    return &image.RGBA{Pix: f.Data, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}, nil
}

func (s *Server) handleWHEPPost(w http.ResponseWriter, r *http.Request) {
    if r.Method == http.MethodOptions {
        allowCORS(w, r)
        w.WriteHeader(http.StatusNoContent)
        return
    }
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if s.cfg.Preview == nil {
        http.Error(w, "remote preview disabled", http.StatusServiceUnavailable)
        return
    }
    offerSDP, err := io.ReadAll(r.Body)
    if err != nil || len(offerSDP) == 0 {
        http.Error(w, "empty offer", http.StatusBadRequest)
        return
    }

    me := webrtc.MediaEngine{}
    if err := me.RegisterDefaultCodecs(); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    api := webrtc.NewAPI(webrtc.WithMediaEngine(&me))
    pc, err := api.NewPeerConnection(s.peerConfig())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    id := uuid.New().String()
    log.Printf("WHEP session %s: created", id)

    videoTrack, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", version.Name)
    if err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    sender, err := pc.AddTrack(videoTrack)
    if err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    go drainRTCP(sender)

    // Registered before negotiation so no state change is missed. Before
    // the session is stored closeSession finds nothing and the handler's
    // own cleanup applies.
    pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
        log.Printf("WHEP session %s state: %s", id, state)
        if isTerminal(state) {
            _ = s.closeSession(id)
        }
    })

    if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: string(offerSDP)}); err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    answer, err := pc.CreateAnswer(nil)
    if err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    gatherComplete := webrtc.GatheringCompletePromise(pc)
    if err := pc.SetLocalDescription(answer); err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    <-gatherComplete

    // The encoder only starts once negotiation succeeded.
    detach, err := s.cfg.Preview.Attach(videoTrack)
    if err != nil {
        _ = pc.Close()
        log.Printf("WHEP session %s: encoder unavailable: %v", id, err)
        http.Error(w, fmt.Sprintf("encoder error: %v", err), http.StatusInternalServerError)
        return
    }

    s.mu.Lock(); s.sessions[id] = &session{pc: pc, detach: detach}; s.mu.Unlock()
    // The peer may have failed while the session was being set up.
    if st := pc.ConnectionState(); isTerminal(st) {
        _ = s.closeSession(id)
        http.Error(w, fmt.Sprintf("peer connection %s", st), http.StatusBadRequest)
        return
    }

    allowCORS(w, r)
    w.Header().Set("Content-Type", "application/sdp")
    w.Header().Set("Location", "/whep/"+id)
    w.WriteHeader(http.StatusCreated)
    _, _ = io.WriteString(w, pc.LocalDescription().SDP)
}

func isTerminal(state webrtc.PeerConnectionState) bool {
    return state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed || state == webrtc.PeerConnectionStateDisconnected
}

func (s *Server) peerConfig() webrtc.Configuration {
    var cfg webrtc.Configuration
    if len(s.cfg.ICEServers) > 0 {
        cfg.ICEServers = []webrtc.ICEServer{{URLs: s.cfg.ICEServers}}
    }
    return cfg
}

// drainRTCP reads incoming RTCP so interceptors (NACK, reports) keep running.
func drainRTCP(sender *webrtc.RTPSender) {
    buf := make([]byte, 1500)
    for {
        if _, _, err := sender.Read(buf); err != nil {
            return
        }
    }
}

func (s *Server) handleWHEPResource(w http.ResponseWriter, r *http.Request) {
    allowCORS(w, r)
    id := strings.TrimPrefix(r.URL.Path, "/whep/")
    switch r.Method {
    case http.MethodPatch:
        // Trickle ICE is not supported; candidates travel in the offer.
        w.WriteHeader(http.StatusNoContent)
    case http.MethodDelete:
        if err := s.closeSession(id); errors.Is(err, errUnknownSession) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    case http.MethodOptions:
        w.WriteHeader(http.StatusNoContent)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

var errUnknownSession = errors.New("unknown session")

func (s *Server) closeSession(id string) error {
    s.mu.Lock(); sess := s.sessions[id]; delete(s.sessions, id); s.mu.Unlock()
    if sess == nil {
        return errUnknownSession
    }
    sess.detach()
    _ = sess.pc.Close()
    log.Printf("WHEP session %s: closed", id)
    return nil
}

// Close ends every session.
func (s *Server) Close() {
    s.mu.Lock()
    ids := make([]string, 0, len(s.sessions))
    for id := range s.sessions { ids = append(ids, id) }
    s.mu.Unlock()
    for _, id := range ids { _ = s.closeSession(id) }
}

func allowCORS(w http.ResponseWriter, r *http.Request) {
    origin := r.Header.Get("Origin")
    if origin == "" { origin = "*" }
    w.Header().Set("Access-Control-Allow-Origin", origin)
    w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
    w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
    w.Header().Set("Access-Control-Expose-Headers", "Location")
}

const indexHTML = `<!doctype html>
<meta charset="utf-8" />
<title>edgeviewer</title>
<style>body{font-family:system-ui;margin:2rem}video,img{width:80vw;max-width:960px;background:#000}pre{font-size:12px}</style>
<div>
  <button id="play">Live</button>
  <button id="stop" disabled>Stop</button>
  <button id="snap">Snapshot</button>
</div>
<video id="v" playsinline autoplay muted></video>
<img id="still" alt="" hidden />
<pre id="stats"></pre>
<script>
let pc=null, res=null; const $=id=>document.getElementById(id);
$("play").onclick = async ()=>{
  pc=new RTCPeerConnection();
  pc.addTransceiver('video',{direction:'recvonly'});
  pc.ontrack = ev=>{$("v").srcObject=ev.streams[0]||new MediaStream([ev.track]);}
  const offer = await pc.createOffer();
  await pc.setLocalDescription(offer);
  const resp=await fetch('/whep',{method:'POST',headers:{'Content-Type':'application/sdp'},body:offer.sdp});
  if(!resp.ok){$("stats").textContent=await resp.text(); return}
  res=resp.headers.get('Location'); const sdp=await resp.text();
  await pc.setRemoteDescription({type:'answer', sdp});
  $("stop").disabled=false;
}
$("stop").onclick = async ()=>{
  if(res){await fetch(res,{method:'DELETE'})} if(pc){pc.close()} $("stop").disabled=true;
}
$("snap").onclick = ()=>{ $("still").src='/snapshot.jpg?t='+Date.now(); $("still").hidden=false; }
setInterval(async ()=>{ const r=await fetch('/stats'); $("stats").textContent=JSON.stringify(await r.json(),null,2); }, 2000);
</script>`
