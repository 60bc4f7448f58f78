package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/logging"
)

// Query keys consumed by GET /api/print; every other key is a display param.
const (
	queryView      = "view"
	queryTaskCount = "taskCount"
)

type handlers struct {
	printer     Printer
	defaultView string
	strict      bool
	logger      *zap.Logger
}

// printRequest is the JSON body of POST /api/print.
type printRequest struct {
	View        string            `json:"view"`
	Order       string            `json:"order"`
	EntryPoints map[string]string `json:"entryPoints"`
	Params      map[string]string `json:"params"`
	Expanded    *bool             `json:"expanded"`
	TaskCount   int               `json:"taskCount"`
	Layout      *layoutBody       `json:"layout"`
}

// layoutBody carries planner geometry measured by the client.
type layoutBody struct {
	TimelineWidth          int `json:"timelineWidth"`
	Tasks                  int `json:"tasks"`
	AllTasks               int `json:"allTasks"`
	MinColumnWidth         int `json:"minColumnWidth"`
	ExpandedMinColumnWidth int `json:"expandedMinColumnWidth"`
}

func (l *layoutBody) HorizontalTimelineSize() int { return l.TimelineWidth }
func (l *layoutBody) TaskCount() int              { return l.Tasks }
func (l *layoutBody) AllTasksCount() int          { return l.AllTasks }

func (l *layoutBody) MinimumColumnWidth(expanded bool) int {
	if expanded && l.ExpandedMinColumnWidth > 0 {
		return l.ExpandedMinColumnWidth
	}
	return l.MinColumnWidth
}

var _ planprint.PlannerLayout = (*layoutBody)(nil)

// renderRequest converts the body, binding Order as the order entry point.
func (b printRequest) renderRequest() planprint.RenderRequest {
	entryPoints := make(map[string]string, len(b.EntryPoints)+1)
	for k, v := range b.EntryPoints {
		entryPoints[k] = v
	}
	if b.Order != "" {
		entryPoints[planprint.EntryPointOrder] = b.Order
	}

	req := planprint.RenderRequest{
		View:        b.View,
		EntryPoints: entryPoints,
		Params:      b.Params,
		Expanded:    planprint.ExpandedByDefault(b.Params),
		TaskCount:   b.TaskCount,
	}
	if b.Expanded != nil {
		req.Expanded = *b.Expanded
	}
	if b.Layout != nil {
		req.Layout = b.Layout
	}
	return req
}

// printResponse is the JSON answer to a print request.
type printResponse struct {
	JobID          string `json:"jobId"`
	Path           string `json:"path"`
	State          string `json:"state"`
	DurationMillis int64  `json:"durationMs"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OverlayApplied bool   `json:"overlayApplied"`
	Error          string `json:"error,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) printJSON(w http.ResponseWriter, r *http.Request) {
	var body printRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}
	h.print(w, r, body.renderRequest())
}

// printQuery mirrors the planner's own print link:
// /api/print?order=42&labels=all&resources=all.
func (h *handlers) printQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := printRequest{
		View:   q.Get(queryView),
		Order:  q.Get(planprint.EntryPointOrder),
		Params: map[string]string{},
	}
	if raw := q.Get(queryTaskCount); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid_query", "taskCount must be an integer", nil)
			return
		}
		body.TaskCount = n
	}
	for k := range q {
		switch k {
		case queryView, queryTaskCount, planprint.EntryPointOrder:
		default:
			body.Params[k] = q.Get(k)
		}
	}
	h.print(w, r, body.renderRequest())
}

func (h *handlers) print(w http.ResponseWriter, r *http.Request, req planprint.RenderRequest) {
	log := logging.FromContext(r.Context(), h.logger)
	if req.View == "" {
		req.View = h.defaultView
	}

	res, err := h.printer.Print(r.Context(), req)
	if res == nil {
		status, code := statusFor(err)
		log.Warn("print rejected", zap.Int("status", status), zap.Error(err))
		writeErr(w, status, code, err.Error(), nil)
		return
	}

	if err != nil && h.strict {
		writeErr(w, http.StatusBadGateway, "capture_failed", err.Error(), map[string]any{
			"jobId": res.JobID,
			"state": res.State,
		})
		return
	}

	if wantsJSON(r) {
		resp := printResponse{
			JobID:          res.JobID,
			Path:           res.Path,
			State:          res.State,
			DurationMillis: res.Duration.Milliseconds(),
			Width:          res.Layout.TotalWidth,
			Height:         res.Layout.Height,
			OverlayApplied: res.OverlayApplied,
		}
		if err != nil {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, res.Path, http.StatusSeeOther)
}

// statusFor maps errors that prevented a capture to HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, planprint.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, planprint.ErrPoolClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, planprint.ErrInterruptedWait):
		return http.StatusServiceUnavailable, "interrupted"
	case errors.Is(err, planprint.ErrHostResolution):
		return http.StatusInternalServerError, "host_resolution"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
