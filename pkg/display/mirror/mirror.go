// Package mirror serves the display to browsers over websocket.
package mirror

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/image/draw"
	"golang.org/x/net/websocket"

	"github.com/robotalks/volknob/pkg/display"
	fx "github.com/robotalks/volknob/pkg/framework"
)

// Scale is the upscale factor of the PNG snapshot.
const Scale = 4

// Frame is sent to clients each time the display changes.
type Frame struct {
	display.View
	ShowMuted bool `json:"show_muted"`
	// Pixels is the packed frame, see display.Pack.
	Pixels []byte `json:"pixels"`
}

// Mirror implements display.Display and fans frames out to
// websocket clients. Slow clients miss frames.
type Mirror struct {
	Addr string

	lock    sync.RWMutex
	bitmap  *display.Bitmap
	view    display.View
	encoded []byte
	clients map[chan []byte]struct{}
}

// New creates a Mirror listening on addr when run.
func New(addr string) *Mirror {
	return &Mirror{
		Addr:    addr,
		bitmap:  display.NewBitmap(),
		clients: make(map[chan []byte]struct{}),
	}
}

// Render implements display.Display.
func (m *Mirror) Render(v display.View) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.encoded != nil && m.view == v {
		return nil
	}
	if err := m.bitmap.Render(v); err != nil {
		return err
	}
	encoded, err := json.Marshal(&Frame{
		View:      v,
		ShowMuted: v.ShowMuted(),
		Pixels:    m.bitmap.Frame(),
	})
	if err != nil {
		return err
	}
	m.view, m.encoded = v, encoded
	for ch := range m.clients {
		select {
		case ch <- encoded:
		default:
		}
	}
	return nil
}

// Handler serves /ws (websocket frames), /frame.png and / (current
// frame as JSON).
func (m *Mirror) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.Handler(m.serveWebsocket))
	mux.HandleFunc("/frame.png", m.servePNG)
	mux.HandleFunc("/", m.serveJSON)
	return mux
}

// Run implements Runnable.
func (m *Mirror) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Addr)
	if err != nil {
		return err
	}
	glog.Infof("display mirror on http://%s", ln.Addr())
	server := &http.Server{Handler: m.Handler()}
	err = fx.RunWithContextCloser(ctx, server, func() error {
		return server.Serve(ln)
	})
	m.closeClients()
	return err
}

func (m *Mirror) serveWebsocket(conn *websocket.Conn) {
	ch := make(chan []byte, 4)
	m.lock.Lock()
	if m.encoded != nil {
		ch <- m.encoded
	}
	m.clients[ch] = struct{}{}
	m.lock.Unlock()
	glog.V(1).Infof("mirror client %s connected", conn.Request().RemoteAddr)
	defer m.removeClient(ch)
	// reader detects the client going away.
	closed := make(chan struct{})
	go func() {
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		close(closed)
	}()
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			if err := websocket.Message.Send(conn, string(data)); err != nil {
				glog.V(1).Infof("mirror client %s: %v", conn.Request().RemoteAddr, err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (m *Mirror) removeClient(ch chan []byte) {
	m.lock.Lock()
	if _, ok := m.clients[ch]; ok {
		delete(m.clients, ch)
		close(ch)
	}
	m.lock.Unlock()
}

func (m *Mirror) closeClients() {
	m.lock.Lock()
	for ch := range m.clients {
		delete(m.clients, ch)
		close(ch)
	}
	m.lock.Unlock()
}

func (m *Mirror) serveJSON(w http.ResponseWriter, r *http.Request) {
	m.lock.RLock()
	encoded := m.encoded
	m.lock.RUnlock()
	if encoded == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(encoded)
}

func (m *Mirror) servePNG(w http.ResponseWriter, r *http.Request) {
	src := m.bitmap.Image()
	dst := image.NewGray(image.Rect(0, 0, display.Width*Scale, display.Height*Scale))
	m.lock.RLock()
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	m.lock.RUnlock()
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, dst); err != nil {
		glog.Warningf("encode png: %v", err)
	}
}
