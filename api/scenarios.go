/*
scenarios.go - Demo scenario loaders for the in-memory host

PURPOSE:

	When the server runs without a chat host (host.base_url empty), the
	directory is empty and no command can succeed. Scenarios populate the
	in-memory host with a realistic team and, for some, with requests and
	check-ins made through the regular services.

AVAILABLE SCENARIOS:

	team:         Members, an admin, a bot and a guest; check-in, time-off and general rooms
	new-hire:     team plus a member who joined this month
	requests:     team plus a confirmed day off and a WFH day next week
	checkin-day:  team plus two members checked in this morning

HOW SCENARIOS WORK:
 1. Reset the host directory and the document store
 2. Register users and rooms
 3. Optionally drive timeoff.Service / attendance.Service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "requests"}

NOTE:

	Scenarios wipe all data. They are only routed when the server runs
	against the in-memory host.

SEE ALSO:
  - host/memory.go: In-memory host
  - cmd/server/main.go: EnableDemo wiring
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/warp/timee/generic"
	"github.com/warp/timee/host"
	"github.com/warp/timee/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "team",
		Name:        "Team",
		Description: "Three members, an admin, a bot and a guest in the check-in and time-off rooms",
	},
	{
		ID:          "new-hire",
		Name:        "New Hire",
		Description: "Team plus a member who joined this month (one month of quota)",
	},
	{
		ID:          "requests",
		Name:        "Requests",
		Description: "Team plus a confirmed day off and a WFH day next week",
	},
	{
		ID:          "checkin-day",
		Name:        "Check-in Day",
		Description: "Team plus two members checked in this morning",
	},
}

// Resetter is a document store that can be wiped.
type Resetter interface {
	Reset(ctx context.Context) error
}

type demo struct {
	host  *host.Memory
	store Resetter

	mu      sync.Mutex
	current string
}

// EnableDemo turns on the scenario endpoints for an in-memory host.
func (h *Handler) EnableDemo(mem *host.Memory, store Resetter) {
	h.demo = &demo{host: mem, store: store}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.demo == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	h.demo.mu.Lock()
	current := h.demo.current
	h.demo.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario wipes all data and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.demo == nil {
		writeError(w, http.StatusNotFound, "Scenarios need the in-memory host", nil)
		return
	}
	var req struct {
		ScenarioID string `json:"scenario_id" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "team":
		load = h.loadTeamScenario
	case "new-hire":
		load = h.loadNewHireScenario
	case "requests":
		load = h.loadRequestsScenario
	case "checkin-day":
		load = h.loadCheckinDayScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.demo.mu.Lock()
	defer h.demo.mu.Unlock()

	ctx := r.Context()
	if err := h.resetDemo(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset data", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.demo.current = req.ScenarioID
	h.Log.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) resetDemo(ctx context.Context) error {
	h.demo.current = ""
	h.demo.host.Reset()
	if err := h.demo.store.Reset(ctx); err != nil {
		return err
	}
	h.Timeoff.FlushCache()
	h.Attendance.FlushCache()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

const (
	demoCheckinRoom = generic.RoomID("room-checkin")
	demoTimeoffRoom = generic.RoomID("room-timeoff")
	demoGeneralRoom = generic.RoomID("room-general")
)

func (h *Handler) loadTeamScenario(ctx context.Context) error {
	joined := generic.Date(2021, time.March, 1)
	team := []host.User{
		{ID: "u-alice", Username: "alice", Name: "Alice", UTCOffset: 7, CreatedAt: joined, Enabled: true},
		{ID: "u-bob", Username: "bob", Name: "Bob", UTCOffset: 8, CreatedAt: joined, Enabled: true},
		{ID: "u-carol", Username: "carol", Name: "Carol", UTCOffset: 7, CreatedAt: joined.AddDate(1, 0, 0), Enabled: true},
		{ID: "u-boss", Username: "boss", Name: "Boss", UTCOffset: 7, CreatedAt: joined, Enabled: true},
		{ID: "u-cat", Username: "rocket.cat", CreatedAt: joined, Enabled: true, Bot: true},
		{ID: "u-guest", Username: "visitor", CreatedAt: joined, Enabled: true, Roles: []string{"guest"}},
	}
	ids := make([]generic.UserID, 0, len(team))
	for _, u := range team {
		h.demo.host.AddUser(u)
		ids = append(ids, u.ID)
	}

	org := h.Timeoff.Settings()
	checkin := "checkin"
	if len(org.CheckinRooms) > 0 {
		checkin = org.CheckinRooms[0]
	}
	h.demo.host.AddRoom(host.Room{ID: demoCheckinRoom, Name: checkin}, ids...)
	h.demo.host.AddRoom(host.Room{ID: demoTimeoffRoom, Name: org.TimeoffRoom}, ids...)
	h.demo.host.AddRoom(host.Room{ID: demoGeneralRoom, Name: "general"}, ids...)
	return nil
}

func (h *Handler) loadNewHireScenario(ctx context.Context) error {
	if err := h.loadTeamScenario(ctx); err != nil {
		return err
	}
	today := timeoff.LocalToday(h.Timeoff.Settings(), h.now())
	hire := host.User{
		ID: "u-dave", Username: "dave", Name: "Dave", UTCOffset: 7,
		CreatedAt: generic.Date(today.Year(), today.Month(), 1), Enabled: true,
	}
	h.demo.host.AddUser(hire)
	for _, room := range []generic.RoomID{demoCheckinRoom, demoTimeoffRoom, demoGeneralRoom} {
		members, err := h.demo.host.Members(ctx, room)
		if err != nil {
			return err
		}
		ids := []generic.UserID{hire.ID}
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		r, err := h.demo.host.RoomByID(ctx, room)
		if err != nil {
			return err
		}
		h.demo.host.AddRoom(*r, ids...)
	}
	return nil
}

func (h *Handler) loadRequestsScenario(ctx context.Context) error {
	if err := h.loadTeamScenario(ctx); err != nil {
		return err
	}

	day := timeoff.LocalToday(h.Timeoff.Settings(), h.now()).AddDate(0, 0, 7)
	for generic.IsWeekend(day) {
		day = day.AddDate(0, 0, 1)
	}
	one := 1.0
	requests := []struct {
		user generic.UserID
		typ  timeoff.RequestType
		form timeoff.RawForm
	}{
		{"u-alice", timeoff.TypeOff, timeoff.RawForm{StartDate: generic.DateToString(day), Duration: &one, Reason: "visiting family upcountry"}},
		{"u-bob", timeoff.TypeWFH, timeoff.RawForm{StartDate: generic.DateToString(day), Duration: &one, Reason: "waiting for a delivery"}},
	}
	for _, req := range requests {
		p, err := h.Timeoff.Submit(ctx, req.user, req.typ, req.form)
		if err != nil {
			return fmt.Errorf("submit %s for %s: %w", req.typ, req.user, err)
		}
		if _, err := h.Timeoff.Confirm(ctx, req.user, p.Token); err != nil {
			return fmt.Errorf("confirm %s for %s: %w", req.typ, req.user, err)
		}
	}
	return nil
}

func (h *Handler) loadCheckinDayScenario(ctx context.Context) error {
	if err := h.loadTeamScenario(ctx); err != nil {
		return err
	}
	for _, user := range []generic.UserID{"u-alice", "u-bob"} {
		if _, err := h.Attendance.Start(ctx, user, demoCheckinRoom, "", false); err != nil {
			return fmt.Errorf("check in %s: %w", user, err)
		}
	}
	return nil
}
