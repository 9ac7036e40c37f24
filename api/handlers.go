/*
handlers.go - HTTP entry points for the chat host

PURPOSE:
  The chat host forwards slash commands, form submissions and button clicks
  to these endpoints. Handlers decode the request, call the services and
  serialize the reply.

ENDPOINTS:
  Commands:
    POST   /api/commands                       Slash command, text reply

  Requests:
    POST   /api/requests                       Submit a form
    POST   /api/requests/confirm               Confirm by token or payload
    POST   /api/requests/{messageID}/cancel    Undo a pending request

  Quota / schedule:
    GET    /api/members/{userID}/remaining     Remaining quota (?year=)
    GET    /api/schedule/today                 Today's digest
    POST   /api/digest/run                     Publish the digest now

  Attendance:
    GET    /api/attendance/today               Today's record (?room=)
    GET    /api/attendance/export              Month export (?room=&month=&format=)

REQUEST FLOW:
  1. Decode and validate the body (validator tags in dto.go)
  2. Call timeoff.Service or attendance.Service
  3. Serialize the response
  4. Map errors through statusFor (errors.go)

Slash command errors that the user caused are additionally shown to the
user as an ephemeral notice in the invoking room.

SECURITY NOTE:
  No authentication. The server is meant to listen on the host's private
  network only.

SEE ALSO:
  - dto.go: Request/response data structures
  - commands.go: Slash command dispatch
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/timee/attendance"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/host"
	"github.com/warp/timee/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Timeoff    *timeoff.Service
	Attendance *attendance.Service
	Host       host.Messenger
	Log        *zap.Logger

	validate *validator.Validate
	now      func() time.Time
	demo     *demo
}

// NewHandler creates a handler. A nil clock defaults to time.Now.
func NewHandler(to *timeoff.Service, att *attendance.Service, h host.Messenger, log *zap.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		Timeoff:    to,
		Attendance: att,
		Host:       h,
		Log:        log.Named("api"),
		validate:   validator.New(),
		now:        now,
	}
}

// decode reads a JSON body into v and runs its validator tags.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	return nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// Command runs a slash command.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	text, err := h.Dispatch(r.Context(), req)
	if err != nil {
		notice := Notice(err)
		if nerr := h.Host.Notify(r.Context(), generic.UserID(req.UserID), generic.RoomID(req.RoomID), notice); nerr != nil {
			h.Log.Warn("notice not delivered", zap.String("user_id", req.UserID), zap.Error(nerr))
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Text: text})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest validates a form and returns what the user must confirm.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	p, err := h.Timeoff.Submit(r.Context(), generic.UserID(req.UserID), timeoff.RequestType(req.Type), req.form())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payload, err := h.Timeoff.Payload(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode confirmation", err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingDTO(p, payload))
}

// ConfirmRequest persists a submitted request.
func (h *Handler) ConfirmRequest(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	var (
		e   timeoff.OffLogEntry
		err error
	)
	user := generic.UserID(req.UserID)
	if req.Token != "" {
		e, err = h.Timeoff.Confirm(r.Context(), user, req.Token)
	} else {
		e, err = h.Timeoff.ConfirmPayload(r.Context(), user, req.Payload)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// CancelRequest undoes a pending request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	msg := generic.MessageID(chi.URLParam(r, "messageID"))
	if err := h.Timeoff.Cancel(r.Context(), generic.UserID(req.UserID), msg); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "message_id": string(msg)})
}

// =============================================================================
// QUOTA / SCHEDULE HANDLERS
// =============================================================================

// GetRemaining returns a member's remaining quota for ?year= (default now).
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	user := generic.UserID(chi.URLParam(r, "userID"))
	year := h.Timeoff.CurrentYear()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	rem, err := h.Timeoff.Remaining(r.Context(), user, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRemainingDTO(user, year, rem))
}

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	d, err := h.Timeoff.Today(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDigestDTO(d))
}

// RunDigest publishes today's digest immediately.
func (h *Handler) RunDigest(w http.ResponseWriter, r *http.Request) {
	d, err := h.Timeoff.RunDailyDigest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDigestDTO(d))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) GetAttendanceToday(w http.ResponseWriter, r *http.Request) {
	d, err := h.Attendance.Today(r.Context(), generic.RoomID(r.URL.Query().Get("room")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": d, "text": attendance.RenderDay(d)})
}

// ExportAttendance streams the month's export as a download.
func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := attendance.ParseFormat(q.Get("format"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f, err := h.Attendance.ExportFile(r.Context(), generic.RoomID(q.Get("room")), q.Get("month"), format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Content); err != nil {
		h.Log.Warn("export write failed", zap.Error(err))
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
