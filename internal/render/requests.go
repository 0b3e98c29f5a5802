package render

// Requests coalesces render requests for hosts that pump their own event
// loop. Any number of RequestRender calls between two draws collapse into
// one pending request. Wake, when set, is called after each request so a
// host blocked waiting for window events can be woken up.
type Requests struct {
    ch   chan struct{}
    Wake func()
}

// NewRequests returns an empty request signal.
func NewRequests() *Requests {
    return &Requests{ch: make(chan struct{}, 1)}
}

// RequestRender marks a draw as pending. It never blocks.
func (r *Requests) RequestRender() {
    select {
    case r.ch <- struct{}{}:
    default:
    }
    if r.Wake != nil {
        r.Wake()
    }
}

// C is readable once per pending request.
func (r *Requests) C() <-chan struct{} { return r.ch }

// Pending consumes the pending request, if any.
func (r *Requests) Pending() bool {
    select {
    case <-r.ch:
        return true
    default:
        return false
    }
}
