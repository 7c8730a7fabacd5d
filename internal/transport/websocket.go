package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// wsMessage is the frame format on the call stream.
// Inbound types: "utterance", "interrupt", "bye".
// Outbound types: "speak", "speak_end", "error".
type wsMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Callers are authenticated by token, not origin.
		return true
	},
}

// WSConn adapts a WebSocket text stream to the Transport contract. One
// goroutine owns reads; writes are serialized by writeMu.
type WSConn struct {
	conn *websocket.Conn
	log  *logrus.Entry

	// pace is the simulated speech duration per sentence chunk, so a
	// barge-in can land mid-delivery the way it does on a real call.
	pace time.Duration

	utterances chan string
	closed     chan struct{}
	closeOnce  sync.Once

	writeMu sync.Mutex

	mu          sync.Mutex
	onInterrupt func()
	interrupted bool
}

// Upgrade upgrades an HTTP request to a call transport and starts the read
// loop. authToken empty means no auth; otherwise the token must be presented
// as ?token=, an X-Auth-Token header, or an Authorization bearer.
func Upgrade(w http.ResponseWriter, r *http.Request, authToken string, log *logrus.Entry) (*WSConn, error) {
	if authToken != "" && !authOK(r, authToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, ErrClosed
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	t := &WSConn{
		conn:       conn,
		log:        log,
		pace:       600 * time.Millisecond,
		utterances: make(chan string, 8),
		closed:     make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func authOK(r *http.Request, expected string) bool {
	if r.URL.Query().Get("token") == expected {
		return true
	}
	if r.Header.Get("X-Auth-Token") == expected {
		return true
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") && auth[7:] == expected {
		return true
	}
	return false
}

// SetPace overrides the per-chunk delivery pacing.
func (t *WSConn) SetPace(d time.Duration) { t.pace = d }

func (t *WSConn) readLoop() {
	defer t.shutdown()
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var m wsMessage
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		switch strings.ToLower(m.Type) {
		case "utterance":
			select {
			case t.utterances <- m.Text:
			case <-t.closed:
				return
			}
		case "interrupt":
			t.fireInterrupt()
		case "bye":
			return
		}
	}
}

func (t *WSConn) fireInterrupt() {
	t.mu.Lock()
	t.interrupted = true
	fn := t.onInterrupt
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// NextUtterance implements Transport.
func (t *WSConn) NextUtterance(ctx context.Context) (string, error) {
	select {
	case u := <-t.utterances:
		return u, nil
	case <-t.closed:
		// drain anything buffered before the close
		select {
		case u := <-t.utterances:
			return u, nil
		default:
		}
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Speak implements Transport. Delivery is chunked by sentence; an interrupt
// stops between chunks and the delivered prefix is reported back.
func (t *WSConn) Speak(ctx context.Context, text string) (string, bool, error) {
	t.mu.Lock()
	t.interrupted = false
	t.mu.Unlock()

	var spoken []string
	for _, chunk := range chunkText(text) {
		if t.isInterrupted() {
			return strings.Join(spoken, " "), true, nil
		}
		if err := t.writeJSON(wsMessage{Type: "speak", Text: chunk}); err != nil {
			return strings.Join(spoken, " "), false, ErrClosed
		}
		// hold the floor for roughly as long as the chunk takes to say
		select {
		case <-time.After(t.pace):
		case <-ctx.Done():
			return strings.Join(spoken, " "), false, ctx.Err()
		case <-t.closed:
			return strings.Join(spoken, " "), false, ErrClosed
		}
		if t.isInterrupted() {
			return strings.Join(spoken, " "), true, nil
		}
		spoken = append(spoken, chunk)
	}
	if err := t.writeJSON(wsMessage{Type: "speak_end"}); err != nil {
		return strings.Join(spoken, " "), false, ErrClosed
	}
	return strings.Join(spoken, " "), false, nil
}

func (t *WSConn) isInterrupted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interrupted
}

// OnInterrupt implements Transport.
func (t *WSConn) OnInterrupt(fn func()) {
	t.mu.Lock()
	t.onInterrupt = fn
	t.mu.Unlock()
}

// Terminate implements Transport. Safe to call more than once.
func (t *WSConn) Terminate() error {
	t.shutdown()
	return nil
}

func (t *WSConn) shutdown() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		_ = t.conn.Close()
	})
}

func (t *WSConn) writeJSON(m wsMessage) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}
