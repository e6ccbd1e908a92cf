package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	canvasService "github.com/zhouzirui/z-canvas/backend/internal/service/canvas"
	"github.com/zhouzirui/z-canvas/backend/pkg/utils"
)

const (
	msgInvalidDimensions = "Invalid dimensions"
	msgNotFound          = "Canvas not found"
	msgInvalidBody       = "invalid request body"
	msgInternal          = "internal server error"

	maxBodyBytes = 1 << 20
)

// Handler 画布服务的HTTP处理器
type Handler struct {
	svc      *canvasService.Service
	upgrader websocket.Upgrader
}

// New 创建画布处理器
func New(svc *canvasService.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册画布相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/canvas", func(cr chi.Router) {
		cr.Post("/init", h.handleInit)

		cr.Route("/{id}", func(sr chi.Router) {
			sr.Get("/", h.handleGetCanvas)
			sr.Get("/elements", h.handleListElements)
			sr.Post("/add/rectangle", h.handleAddRectangle)
			sr.Post("/add/circle", h.handleAddCircle)
			sr.Post("/add/text", h.handleAddText)
			sr.Get("/export/pdf", h.handleExportPDF)
			sr.Get("/export/png", h.handleExportPNG)
			sr.Get("/ws", h.handleMirrorSocket)
			sr.Get("/events", h.handleMirrorEvents)
		})
	})
}

// handleInit 创建画布会话
func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	}
	if err := decodeBody(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidDimensions)
		return
	}

	width, okW := toDimension(payload.Width)
	height, okH := toDimension(payload.Height)
	if !okW || !okH {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidDimensions)
		return
	}

	info, err := h.svc.CreateSession(r.Context(), width, height)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"id":      info.ID,
		"message": "Canvas initialized",
	})
}

// handleGetCanvas 返回画布尺寸与元素数量
func (h *Handler) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

// handleListElements 按绘制顺序返回元素日志
func (h *Handler) handleListElements(w http.ResponseWriter, r *http.Request) {
	elements, err := h.svc.Elements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"elements": elements})
}

// handleAddRectangle 添加矩形
func (h *Handler) handleAddRectangle(w http.ResponseWriter, r *http.Request) {
	var opts canvas.RectangleOptions
	h.addPrimitive(w, r, &opts, func() canvas.Primitive { return opts.Primitive() }, "Rectangle added")
}

// handleAddCircle 添加圆形
func (h *Handler) handleAddCircle(w http.ResponseWriter, r *http.Request) {
	var opts canvas.CircleOptions
	h.addPrimitive(w, r, &opts, func() canvas.Primitive { return opts.Primitive() }, "Circle added")
}

// handleAddText 添加文字
func (h *Handler) handleAddText(w http.ResponseWriter, r *http.Request) {
	var opts canvas.TextOptions
	h.addPrimitive(w, r, &opts, func() canvas.Primitive { return opts.Primitive() }, "Text added")
}

// addPrimitive checks the session before reading the body so unknown ids
// always answer 404, then decodes into opts and applies the resolved primitive.
func (h *Handler) addPrimitive(w http.ResponseWriter, r *http.Request, opts any, build func() canvas.Primitive, message string) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetSession(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if err := decodeBody(r, opts); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.svc.Apply(r.Context(), id, build()); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondMessage(w, message)
}

// handleExportPDF 导出 PDF
func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportPDF(r.Context(), chi.URLParam(r, "id"), &buf); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=canvas.pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("[canvas] pdf write interrupted")
	}
}

// handleExportPNG 导出 PNG 预览
func (h *Handler) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportPNG(r.Context(), chi.URLParam(r, "id"), &buf); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("[canvas] png write interrupted")
	}
}

// respondServiceError 将服务层错误映射为 HTTP 状态码，未知错误不向客户端泄露细节
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, canvasService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, canvasService.ErrInvalidDimensions):
		utils.RespondError(w, http.StatusBadRequest, msgInvalidDimensions)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("[canvas] unhandled failure")
		utils.RespondError(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeBody treats an empty body as an empty JSON object.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// toDimension truncates a JSON number to whole pixels; nil, non-positive and
// out-of-range values are rejected.
func toDimension(v *float64) (int, bool) {
	if v == nil || math.IsNaN(*v) || *v >= math.MaxInt32 {
		return 0, false
	}
	n := int(*v)
	if n <= 0 {
		return 0, false
	}
	return n, true
}
