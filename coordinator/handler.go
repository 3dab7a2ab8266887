// Package coordinator hands flight assignments from pilots to drones.
//
// A drone agent long-polls POST /connect until a pilot posts a list of
// actions to POST /actions; the coordinator then redirects the agent to
// GET /actions?id=<droneID>, which returns the assignment exactly once.
package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// StatusWaiting is a drone waiting for an assignment
	StatusWaiting = "waiting"
	// StatusAssigned is a drone whose assignment has not been collected yet
	StatusAssigned = "assigned"
)

var (
	ErrNoDrones      = errors.New("no available drones")
	ErrUnknownDrone  = errors.New("no drone found with this ID")
	ErrNotAssigned   = errors.New("drone has no assignment yet")
	ErrAlreadyQueued = errors.New("drone already connected")
)

// ConnectRequest is the body of POST /connect
type ConnectRequest struct {
	DroneID string `json:"droneID"`
}

// ActionsRequest is the body of POST /actions
type ActionsRequest struct {
	ItemID  string   `json:"itemID"`
	Actions []string `json:"actions"`
}

// Assignment is what a drone receives from GET /actions
type Assignment struct {
	ItemID  int      `json:"itemID"`
	Actions []string `json:"actions"`
}

// AssignResponse is the body returned by POST /actions
type AssignResponse struct {
	DroneID string `json:"droneID"`
	ItemID  int    `json:"itemID"`
}

// DroneInfo describes a queued drone in GET /drones
type DroneInfo struct {
	DroneID string    `json:"droneID"`
	Status  string    `json:"status"`
	Since   time.Time `json:"since"`
}

type drone struct {
	id         string
	status     string
	since      time.Time
	assignment *Assignment
	assigned   chan struct{}
}

// Handler serves the coordinator API
type Handler struct {
	mu    sync.Mutex
	queue []*drone

	clock  clockwork.Clock
	logger *slog.Logger
}

// NewHandler creates a coordinator with an empty queue
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
}

// SetClock replaces the clock used for queue timestamps
func (h *Handler) SetClock(clock clockwork.Clock) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clock = clock
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/connect":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.postConnect(w, r)
	case "/actions":
		switch r.Method {
		case http.MethodGet:
			h.getActions(w, r)
		case http.MethodPost:
			h.postActions(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "/drones":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getDrones(w)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// postConnect queues the drone and blocks until it is assigned or the
// request goes away
func (h *Handler) postConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.DroneID == "" {
		http.Error(w, "missing droneID", http.StatusBadRequest)
		return
	}

	d, err := h.enqueue(req.DroneID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.logger.Info("drone waiting", "drone", d.id)

	select {
	case <-d.assigned:
	case <-r.Context().Done():
		if h.remove(d) {
			h.logger.Info("drone left before assignment", "drone", d.id)
		}
		return
	}

	u := url.URL{Path: "/actions", RawQuery: url.Values{"id": {d.id}}.Encode()}
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// getActions returns the assignment once and drops the drone from the queue
func (h *Handler) getActions(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	assignment, err := h.collect(id)
	switch {
	case errors.Is(err, ErrUnknownDrone):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrNotAssigned):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

// postActions assigns the posted actions to the first waiting drone
func (h *Handler) postActions(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req ActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	itemID, err := strconv.Atoi(req.ItemID)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid itemID %q", req.ItemID), http.StatusBadRequest)
		return
	}
	if err := ValidateActions(req.Actions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.assign(&Assignment{ItemID: itemID, Actions: req.Actions})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.logger.Info("drone assigned", "drone", d.id, "item", itemID, "actions", req.Actions)

	writeJSON(w, http.StatusOK, AssignResponse{DroneID: d.id, ItemID: itemID})
}

func (h *Handler) getDrones(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.Drones())
}

// Drones returns the queued drones in arrival order
func (h *Handler) Drones() []DroneInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	drones := make([]DroneInfo, 0, len(h.queue))
	for _, d := range h.queue {
		drones = append(drones, DroneInfo{DroneID: d.id, Status: d.status, Since: d.since})
	}
	return drones
}

func (h *Handler) enqueue(id string) (*drone, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.queue {
		if d.id == id {
			return nil, ErrAlreadyQueued
		}
	}
	d := &drone{
		id:       id,
		status:   StatusWaiting,
		since:    h.clock.Now(),
		assigned: make(chan struct{}),
	}
	h.queue = append(h.queue, d)
	return d, nil
}

func (h *Handler) assign(a *Assignment) (*drone, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.queue {
		if d.status == StatusWaiting {
			d.status = StatusAssigned
			d.assignment = a
			d.since = h.clock.Now()
			close(d.assigned)
			return d, nil
		}
	}
	return nil, ErrNoDrones
}

func (h *Handler) collect(id string) (*Assignment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, d := range h.queue {
		if d.id != id {
			continue
		}
		if d.status != StatusAssigned {
			return nil, ErrNotAssigned
		}
		h.queue = append(h.queue[:i], h.queue[i+1:]...)
		return d.assignment, nil
	}
	return nil, ErrUnknownDrone
}

// remove drops d from the queue and reports whether it was still there
func (h *Handler) remove(d *drone) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, q := range h.queue {
		if q == d {
			h.queue = append(h.queue[:i], h.queue[i+1:]...)
			if d.status == StatusAssigned {
				h.logger.Warn("assignment dropped, drone disconnected", "drone", d.id, "item", d.assignment.ItemID)
			}
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
