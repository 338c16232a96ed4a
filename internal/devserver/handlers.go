package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

const (
	maxPageLimit    = 200
	maxTimelineDays = 365

	keepaliveInterval = 15 * time.Second
)

// Handlers serves the agent event history API backed by an EventStore.
type Handlers struct {
	store  storage.EventStore
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers wires the API handlers to their store and hub.
func NewHandlers(store storage.EventStore, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{store: store, hub: hub, logger: logger}
}

type eventsResponse struct {
	Events           []timeline.Event `json:"events"`
	NextCursor       *string          `json:"next_cursor"`
	HasMore          bool             `json:"has_more"`
	ProcessingActive bool             `json:"processing_active"`
}

type timelineResponse struct {
	Buckets []timeline.TimelineBucket `json:"buckets"`
	Latest  *string                   `json:"latest"`
	Days    int                       `json:"days"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Message: message}})
}

// ListEvents serves GET /agents/{agentID}/events/.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	params := r.URL.Query()

	q := storage.ListQuery{
		AgentID:  agentID,
		Cursor:   params.Get("cursor"),
		Limit:    clampLimit(params.Get("limit")),
		Day:      params.Get("day"),
		TZOffset: parseIntParam(params.Get("tz_offset"), 0),
	}

	page, err := h.store.ListEvents(r.Context(), q)
	if err != nil {
		AddError(r.Context(), err)
		if errors.Is(err, storage.ErrMalformedCursor) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := eventsResponse{
		Events:           page.Events,
		HasMore:          page.HasMore,
		ProcessingActive: h.hub.Processing(agentID),
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoadTimeline serves GET /agents/{agentID}/events/timeline/.
func (h *Handlers) LoadTimeline(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	params := r.URL.Query()

	days := parseIntParam(params.Get("days"), timeline.DefaultTimelineDays)
	if days < 1 {
		days = 1
	}
	if days > maxTimelineDays {
		days = maxTimelineDays
	}

	tl, err := h.store.TimelineIndex(r.Context(), agentID, days, parseIntParam(params.Get("tz_offset"), 0))
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to load timeline")
		return
	}

	resp := timelineResponse{Buckets: tl.Buckets, Days: tl.Days}
	if tl.Latest != "" {
		resp.Latest = &tl.Latest
	}
	writeJSON(w, http.StatusOK, resp)
}

// PushEvent serves POST /agents/{agentID}/events/. The body is one frame in
// the same envelope the stream delivers. Stored kinds are appended to the
// history and broadcast; processing_status only flips the agent's flag.
func (h *Handlers) PushEvent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	payload, err := timeline.DecodePayload(body)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.Kind == timeline.KindProcessingStatus {
		h.hub.SetProcessing(agentID, *payload.Active)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := h.store.AppendEvent(r.Context(), agentID, *payload.Event); err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}
	h.hub.Publish(agentID, body)

	AddLogField(r.Context(), "event_kind", string(payload.Kind))
	w.WriteHeader(http.StatusAccepted)
}

// StreamEvents serves GET /agents/{agentID}/events/stream. It holds the
// connection open and relays every frame published for the agent.
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	frames, cancel := h.hub.Subscribe(agentID)
	defer cancel()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", frame)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func clampLimit(raw string) int {
	limit := parseIntParam(raw, timeline.DefaultPageLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
