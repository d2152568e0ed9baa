package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/checkcode/internal/scan"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocketMessage is sent from the server to a camera client.
//
//	ready    the session is scanning; send frames as binary messages
//	result   a code was decoded and classified; the server then closes
//	error    the session failed; fallback "file" asks the client to offer
//	         an upload instead of the camera
//	stopped  the client asked to stop
type WebSocketMessage struct {
	Type     string        `json:"type"`
	Result   *ScanResponse `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Fallback string        `json:"fallback,omitempty"`
	Frames   int           `json:"frames,omitempty"`
}

// WebSocketClientMessage is a control message from a camera client.
// Types are "stop" and "camera_error".
type WebSocketClientMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func writeWSMessage(conn WebSocketConnWriter, msg WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// scanWebSocketHandler runs one camera session per connection: binary
// image frames in, a single classification out.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("Camera session opened", "remote_addr", r.RemoteAddr)
	s.runCameraSession(r.Context(), conn)
}

func (s *Server) runCameraSession(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go keepAlive(ctx, conn)

	frames := make(chan image.Image, s.frameBuffer)
	src, err := scan.Open(ctx, func(context.Context) (scan.FrameSource, error) {
		return scan.NewChannelSource(frames, nil), nil
	})
	if err != nil {
		s.sendWS(conn, cameraErrorMessage(err))
		return
	}

	sess := scan.NewSession(s.svc.Decoder())
	if err := sess.Start(ctx, src, nil); err != nil {
		s.sendWS(conn, WebSocketMessage{Type: "error", Error: err.Error()})
		return
	}
	defer sess.Stop()

	s.sendWS(conn, WebSocketMessage{Type: "ready"})

	cameraErr := make(chan error, 1)
	go s.readFrames(conn, frames, sess, cameraErr)

	select {
	case err := <-cameraErr:
		sess.Stop()
		scansTotal.WithLabelValues("camera", "error").Inc()
		s.sendWS(conn, cameraErrorMessage(err))
	case <-sess.Done():
		s.finishCameraSession(ctx, conn, sess.Wait())
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}

func (s *Server) finishCameraSession(ctx context.Context, conn *websocket.Conn, stats scan.Stats) {
	if stats.Err != nil {
		if errors.Is(stats.Err, scan.ErrStopped) {
			s.sendWS(conn, WebSocketMessage{Type: "stopped", Frames: stats.Frames})
			return
		}
		scansTotal.WithLabelValues("camera", "error").Inc()
		s.sendWS(conn, WebSocketMessage{Type: "error", Error: stats.Err.Error(), Frames: stats.Frames})
		return
	}

	c, err := s.svc.Lookup(ctx, stats.Text)
	observeScan("camera", c, err)
	if err != nil {
		s.sendWS(conn, WebSocketMessage{Type: "error", Error: err.Error(), Frames: stats.Frames})
		return
	}
	resp := newScanResponse(c)
	s.sendWS(conn, WebSocketMessage{Type: "result", Result: &resp, Frames: stats.Frames})
}

func cameraErrorMessage(err error) WebSocketMessage {
	var camErr *scan.CameraAccessError
	if !errors.As(err, &camErr) {
		camErr = &scan.CameraAccessError{Err: err}
	}
	return WebSocketMessage{Type: "error", Error: camErr.Error(), Fallback: "file"}
}

// readFrames feeds decoded binary frames to the session until the client
// stops, reports a camera failure, or disconnects. Frames arriving while
// the buffer is full are dropped.
func (s *Server) readFrames(conn *websocket.Conn, frames chan<- image.Image, sess *scan.Session, cameraErr chan<- error) {
	defer close(frames)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Camera session read ended", "error", err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			img, _, err := utils.DecodeImageBytes(data)
			if err != nil {
				slog.Debug("Skipping undecodable frame", "error", err)
				continue
			}
			select {
			case frames <- img:
			default:
				slog.Debug("Dropping frame, scanner busy")
			}
		case websocket.TextMessage:
			var msg WebSocketClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "stop":
				sess.Stop()
				return
			case "camera_error":
				cameraErr <- &scan.CameraAccessError{Err: errors.New(msg.Error)}
				return
			}
		}
	}
}

func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, msg WebSocketMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := writeWSMessage(conn, msg); err != nil {
		slog.Debug("Failed to send websocket message", "type", msg.Type, "error", err)
	}
}
