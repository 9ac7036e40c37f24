/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures the chat host exchanges with the bot. These
  types decouple the internal records from the wire contract, so a field
  can be renamed inside without breaking the host integration.

NAMING CONVENTION:
  - *DTO: Response types returned to the host
  - *Request: Request body types from the host
  - *Response: Wrappers around rendered chat text

TYPES:
  Commands:
    CommandRequest, CommandResponse

  Requests:
    SubmitRequest, ConfirmRequest, CancelRequest,
    PendingConfirmationDTO, OffLogEntryDTO

  Quota:
    RemainingDTO

  Schedule:
    DigestDTO

VALIDATION:
  Request bodies carry validator tags, checked in handlers before any
  service call. Form fields are validated again by timeoff.ValidateForm,
  which owns the field-keyed messages shown to the user.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
)

// =============================================================================
// COMMANDS
// =============================================================================

// CommandRequest is one slash command, e.g. {"command": "wfh", "args":
// ["start", "on", "site"]}.
type CommandRequest struct {
	Command string   `json:"command" validate:"required"`
	Args    []string `json:"args"`
	UserID  string   `json:"user_id" validate:"required"`
	RoomID  string   `json:"room_id" validate:"required"`
}

// CommandResponse is the text shown back to the invoking user.
type CommandResponse struct {
	Text string `json:"text"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type SubmitRequest struct {
	UserID    string   `json:"user_id" validate:"required"`
	Type      string   `json:"type" validate:"required"`
	StartDate string   `json:"start_date"`
	Period    string   `json:"period"`
	Duration  *float64 `json:"duration"`
	Reason    string   `json:"reason"`
}

func (r SubmitRequest) form() timeoff.RawForm {
	return timeoff.RawForm{StartDate: r.StartDate, Period: r.Period, Duration: r.Duration, Reason: r.Reason}
}

// ConfirmRequest confirms by server-side token or by round-tripped payload.
type ConfirmRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Token   string `json:"token" validate:"required_without=Payload"`
	Payload string `json:"payload" validate:"required_without=Token"`
}

type CancelRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type WarningDTO struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	Value    *float64 `json:"value,omitempty"`
}

type PendingConfirmationDTO struct {
	Token          string       `json:"token"`
	Payload        string       `json:"payload"`
	Text           string       `json:"text"`
	Type           string       `json:"type"`
	StartDate      string       `json:"start_date"`
	EndDate        string       `json:"end_date,omitempty"`
	Period         string       `json:"period"`
	Duration       float64      `json:"duration"`
	Warnings       []WarningDTO `json:"warnings"`
	RemainingAfter float64      `json:"remaining_after"`
	ExpiresAt      string       `json:"expires_at"`
}

type OffLogEntryDTO struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	MessageID string       `json:"message_id"`
	Type      string       `json:"type"`
	StartDate string       `json:"start_date"`
	Period    string       `json:"period"`
	Duration  float64      `json:"duration"`
	Reason    string       `json:"reason"`
	Warnings  []WarningDTO `json:"warnings"`
	CreatedAt string       `json:"created_at"`
}

// =============================================================================
// QUOTA / SCHEDULE
// =============================================================================

type RemainingDTO struct {
	UserID      string  `json:"user_id"`
	Year        int     `json:"year"`
	Off         float64 `json:"off"`
	WFH         float64 `json:"wfh"`
	LateMinutes float64 `json:"late_minutes"`
}

type DigestDTO struct {
	Date  string                  `json:"date"`
	Off   []timeoff.ScheduleEntry `json:"off"`
	WFH   []timeoff.ScheduleEntry `json:"wfh"`
	Other []timeoff.ScheduleEntry `json:"other"`
	Text  string                  `json:"text"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toWarningDTOs(ws []timeoff.Warning) []WarningDTO {
	out := make([]WarningDTO, len(ws))
	for i, w := range ws {
		out[i] = WarningDTO{Kind: string(w.Kind), Severity: string(w.Severity)}
		if w.Value != nil {
			f, _ := w.Value.Float64()
			out[i].Value = &f
		}
	}
	return out
}

func toPendingDTO(p timeoff.PendingConfirmation, payload string) PendingConfirmationDTO {
	duration, _ := p.Form.Duration.Float64()
	return PendingConfirmationDTO{
		Token:          p.Token,
		Payload:        payload,
		Text:           timeoff.RenderConfirmation(p.Username, p),
		Type:           string(p.Type),
		StartDate:      p.Message.StartDate,
		EndDate:        p.Message.EndDate,
		Period:         string(p.Form.Period),
		Duration:       duration,
		Warnings:       toWarningDTOs(p.Warnings),
		RemainingAfter: p.RemainingAfter.Float(),
		ExpiresAt:      p.CreatedAt.Add(timeoff.ConfirmationTTL).Format(time.RFC3339),
	}
}

func toEntryDTO(e timeoff.OffLogEntry) OffLogEntryDTO {
	duration, _ := e.Duration.Float64()
	return OffLogEntryDTO{
		ID:        e.ID,
		UserID:    string(e.UserID),
		MessageID: string(e.MessageID),
		Type:      string(e.Type),
		StartDate: generic.DateToString(e.StartDate),
		Period:    string(e.Period),
		Duration:  duration,
		Reason:    e.Reason,
		Warnings:  toWarningDTOs(e.Warnings),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toRemainingDTO(user generic.UserID, year int, r timeoff.Remaining) RemainingDTO {
	return RemainingDTO{
		UserID:      string(user),
		Year:        year,
		Off:         r.Off.Float(),
		WFH:         r.WFH.Float(),
		LateMinutes: r.Late.Float(),
	}
}

func toDigestDTO(d timeoff.Digest) DigestDTO {
	return DigestDTO{Date: d.Date, Off: d.Off, WFH: d.WFH, Other: d.Other, Text: timeoff.RenderDigest(d)}
}
