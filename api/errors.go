package api

import (
	"errors"
	"net/http"

	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
)

// =============================================================================
// ERROR MAPPING
// =============================================================================

const noticeSomethingWrong = "Something went wrong, please try again."

// statusFor maps a service error to an HTTP status.
//
//	422 field validation    400 other bad input   403 not an admin
//	404 missing or expired  409 state conflict    502 host or store failure
func statusFor(err error) int {
	var verr *timeoff.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, generic.ErrCollaborator):
		return http.StatusBadGateway
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var notices = []struct {
	err  error
	text string
}{
	{generic.ErrAlreadyActive, "You have already started, or did not end your last session."},
	{generic.ErrSessionEnded, "You have ended your session today. Use `start force` to start again."},
	{generic.ErrNotActive, "You have not started yet."},
	{generic.ErrNoTimelog, "No time log found for today."},
	{generic.ErrWrongRoom, "You cannot run this command in this channel."},
	{generic.ErrNotPending, "This request already took effect and can no longer be cancelled."},
	{generic.ErrAlreadyCancelled, "This request was already cancelled."},
	{generic.ErrNotAuthor, "Only the author can change this request."},
	{generic.ErrForbidden, "This command is for admins only."},
	{generic.ErrExpired, "This confirmation has expired, please submit the request again."},
	{generic.ErrNotFound, "Not found."},
}

// Notice is the user-facing text for err.
func Notice(err error) string {
	if errors.Is(err, generic.ErrCollaborator) {
		return noticeSomethingWrong
	}
	for _, n := range notices {
		if errors.Is(err, n.err) {
			return n.text
		}
	}
	if generic.IsClientError(err) {
		return err.Error()
	}
	return noticeSomethingWrong
}

func writeServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: Notice(err), Details: err.Error()}
	var verr *timeoff.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, statusFor(err), resp)
}
