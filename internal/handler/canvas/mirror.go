package canvas

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	"github.com/zhouzirui/z-canvas/backend/pkg/utils"
)

const (
	mirrorPongWait   = 60 * time.Second
	mirrorPingPeriod = 25 * time.Second
	mirrorWriteWait  = 10 * time.Second
	sseHeartbeat     = 15 * time.Second
)

// Mirror message types.
const (
	MessageConnected = "connected"
	MessageElement   = "element"
	MessageError     = "error"
)

// MirrorMessage 镜像推送的消息格式，WebSocket 与 SSE 共用
type MirrorMessage struct {
	Type      string `json:"type"`
	CanvasID  string `json:"canvasId"`
	Seq       int    `json:"seq,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func newMirrorMessage(kind, canvasID string, seq int, data any) MirrorMessage {
	return MirrorMessage{
		Type:      kind,
		CanvasID:  canvasID,
		Seq:       seq,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// handleMirrorSocket 通过 WebSocket 推送画布元素流
func (h *Handler) handleMirrorSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := h.svc.Subscribe(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("canvas", id).Msg("[mirror] websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("canvas", id).Int("backlog", len(sub.Backlog)).Msg("[mirror] websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(mirrorPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(mirrorPongWait))
	})
	go readUntilClosed(conn, cancel)

	if err := writeSocket(conn, newMirrorMessage(MessageConnected, id, 0, sub.Info)); err != nil {
		return
	}
	for i, el := range sub.Backlog {
		if err := writeSocket(conn, newMirrorMessage(MessageElement, id, i+1, el)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(mirrorPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("canvas", id).Msg("[mirror] websocket closed by client")
			return
		case ev, ok := <-sub.Events:
			if !ok {
				_ = writeSocket(conn, newMirrorMessage(MessageError, id, 0, "mirror dropped: subscriber too slow"))
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"),
					time.Now().Add(mirrorWriteWait))
				return
			}
			if err := writeSocket(conn, newMirrorMessage(MessageElement, id, ev.Seq, ev.Element)); err != nil {
				log.Debug().Err(err).Str("canvas", id).Msg("[mirror] websocket write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(mirrorWriteWait)); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so control messages are processed and
// cancels once the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("[mirror] websocket read error")
			}
			return
		}
	}
}

func writeSocket(conn *websocket.Conn, msg MirrorMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(mirrorWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// handleMirrorEvents 通过 SSE 推送画布元素流，支持 Last-Event-ID 续传
func (h *Handler) handleMirrorEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	defer sub.Close()

	// 长连接不受服务器写超时限制
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	resumeFrom := lastEventID(r)
	log.Info().Str("canvas", id).Int("resume", resumeFrom).Msg("[mirror] sse connected")

	if err := utils.SendSSEEvent(w, flusher, MessageConnected, "", newMirrorMessage(MessageConnected, id, 0, sub.Info)); err != nil {
		return
	}
	for i, el := range sub.Backlog {
		seq := i + 1
		if seq <= resumeFrom {
			continue
		}
		if err := sendElementEvent(w, flusher, id, seq, el); err != nil {
			return
		}
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("canvas", id).Msg("[mirror] sse closed by client")
			return
		case ev, ok := <-sub.Events:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, MessageError, "", newMirrorMessage(MessageError, id, 0, "mirror dropped: subscriber too slow"))
				return
			}
			if err := sendElementEvent(w, flusher, id, ev.Seq, ev.Element); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func sendElementEvent(w http.ResponseWriter, flusher http.Flusher, id string, seq int, el canvas.Primitive) error {
	return utils.SendSSEEvent(w, flusher, MessageElement, strconv.Itoa(seq), newMirrorMessage(MessageElement, id, seq, el))
}

// lastEventID 读取 Last-Event-ID 请求头或 lastEventId 查询参数
func lastEventID(r *http.Request) int {
	raw := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("lastEventId"))
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
