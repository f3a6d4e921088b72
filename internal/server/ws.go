package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/recognizer"
	"github.com/ayusman/fingerspell/internal/server/api"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// MaxMessageSize bounds one client message. A frame of 21 landmarks is well
// under 4 KiB.
const MaxMessageSize = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Client message types.
const (
	msgFrame = "frame"
	msgReset = "reset"
	msgSkip  = "skip"
)

// Server message types.
const (
	msgReady     = "ready"
	msgDetection = "detection"
	msgPractice  = "practice"
	msgError     = "error"
)

type clientMessage struct {
	Type      string             `json:"type"`
	Timestamp int64              `json:"timestamp"`
	Landmarks []landmark.Point3D `json:"landmarks"`
}

type serverMessage struct {
	Type      string                `json:"type"`
	Session   string                `json:"session,omitempty"`
	Detection *recognizer.Detection `json:"detection,omitempty"`
	Practice  *practice.Progress    `json:"practice,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// StreamHandler runs a recognition session over a websocket. The client
// sends landmark frames; the server answers with every change of the
// detected letter and with drill progress.
type StreamHandler struct {
	sessions *session.Manager
	logger   logging.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(sessions *session.Manager, logger logging.Logger) *StreamHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &StreamHandler{sessions: sessions, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests for /api/sessions/{id}/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c := &streamConn{logger: h.logger}

	sess, err := h.sessions.Attach(id, c.update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			api.WriteError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, session.ErrSessionEnded):
			api.WriteError(w, http.StatusGone, "Session has ended")
		case errors.Is(err, session.ErrSessionBusy):
			api.WriteError(w, http.StatusConflict, "Session is already streaming")
		default:
			api.WriteError(w, http.StatusInternalServerError, "Failed to attach session")
		}
		return
	}
	defer func() {
		if err := sess.End(); err != nil {
			h.logger.Errorw("failed to end session", "session", id, "error", err)
		}
	}()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade error", "session", id, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxMessageSize)
	c.conn = conn
	c.sess = sess

	ready := serverMessage{Type: msgReady, Session: id}
	if d := sess.Drill(); d != nil {
		p := d.Progress()
		ready.Practice = &p
	}
	if err := c.send(ready); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// A blocked read only returns when the connection closes.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := sess.Engine().Run(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warnw("stream ended with error", "session", id, "error", err)
	}
}

// streamConn is the websocket side of a session: a recognizer.FrameSource
// for the engine and the sink for its updates.
type streamConn struct {
	conn   *websocket.Conn
	sess   *session.Session
	logger logging.Logger

	writeMu sync.Mutex
}

func (c *streamConn) send(msg serverMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteJSON(msg)
}

// update runs on the engine goroutine.
func (c *streamConn) update(u session.Update) {
	det := u.Detection
	if err := c.send(serverMessage{Type: msgDetection, Detection: &det}); err != nil {
		c.logger.Debugw("failed to send detection", "error", err)
		return
	}
	if u.Practice != nil {
		c.send(serverMessage{Type: msgPractice, Practice: u.Practice})
	}
}

// Next implements recognizer.FrameSource. Control messages are handled
// inline; a closed connection ends the stream with io.EOF.
func (c *streamConn) Next(ctx context.Context) (recognizer.Frame, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return recognizer.Frame{}, ctx.Err()
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debugw("websocket closed unexpectedly", "error", err)
			}
			return recognizer.Frame{}, io.EOF
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(serverMessage{Type: msgError, Error: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case msgFrame:
			return recognizer.Frame{Timestamp: msg.Timestamp, Landmarks: msg.Landmarks}, nil
		case msgReset:
			if err := c.sess.Engine().Reset(msg.Timestamp); err != nil {
				c.send(serverMessage{Type: msgError, Error: err.Error()})
			}
		case msgSkip:
			d := c.sess.Drill()
			if d == nil {
				c.send(serverMessage{Type: msgError, Error: "session has no practice targets"})
				continue
			}
			p := d.Skip()
			c.send(serverMessage{Type: msgPractice, Practice: &p})
		default:
			c.send(serverMessage{Type: msgError, Error: "unknown message type: " + msg.Type})
		}
	}
}
