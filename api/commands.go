/*
commands.go - Slash command dispatch

COMMANDS:
  /wfh start [force] [note...]   Check in (force restarts after end)
  /wfh pause|resume|end [note]   Change session state
  /wfh extract [MM/YYYY]         Upload the month's CSV to the caller's DM
  /wfh help

  /off today                     Today's schedule digest
  /off remaining [year]          Caller's remaining quota
  /off undo <messageID>          Cancel one of the caller's pending requests
  /off tick [MM/YYYY]            Tick board of the month
  /off stats [year]              Admin: remaining quota of every member
  /off extra <user> <type> <n>   Admin: adjust a member's quota
  /off extra-stats               Admin: this year's adjustments
  /off logs <user>               Admin: a member's requests this year
  /off help

"checkin" is accepted for "wfh", and "export" for "extract".

Every reply is plain markdown text. Errors are turned into notices by the
caller (Notice in errors.go).
*/
package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/timee/attendance"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
)

const (
	helpWFH = "Use `/wfh start message(optional)`\nOption: start | pause | resume | end | extract MM/YYYY."
	helpOff = "Use `/off today | remaining [year] | undo <message> | tick [MM/YYYY]`\n" +
		"Admin: `stats [year] | extra <username> <type> <count> | extra-stats | logs <username>`."
)

// Dispatch runs one slash command and returns the reply text.
func (h *Handler) Dispatch(ctx context.Context, req CommandRequest) (string, error) {
	user, room := generic.UserID(req.UserID), generic.RoomID(req.RoomID)
	sub, args := "", []string(nil)
	if len(req.Args) > 0 {
		sub, args = strings.ToLower(req.Args[0]), req.Args[1:]
	}

	switch strings.TrimPrefix(req.Command, "/") {
	case "wfh", "checkin":
		return h.dispatchWFH(ctx, user, room, sub, args)
	case "off":
		return h.dispatchOff(ctx, user, sub, args)
	}
	return "", fmt.Errorf("%w: unknown command %q", generic.ErrInvalidInput, req.Command)
}

func (h *Handler) dispatchWFH(ctx context.Context, user generic.UserID, room generic.RoomID, sub string, args []string) (string, error) {
	if sub == "extract" || sub == "export" {
		month := ""
		if len(args) > 0 {
			month = args[0]
		}
		f, err := h.Attendance.Export(ctx, user, room, month)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Sent %s to your direct messages.", f.Filename), nil
	}

	cmd, ok := attendance.ParseCommand(sub)
	if !ok {
		return helpWFH, nil
	}
	force := cmd == attendance.CmdStart && len(args) > 0 && args[0] == "force"
	if force {
		args = args[1:]
	}

	d, err := h.Attendance.Handle(ctx, user, room, cmd, strings.Join(args, " "), force)
	if err != nil {
		return "", err
	}
	return attendance.RenderDay(d), nil
}

func (h *Handler) dispatchOff(ctx context.Context, user generic.UserID, sub string, args []string) (string, error) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	year := func(s string) (int, error) {
		if s == "" {
			return h.Timeoff.CurrentYear(), nil
		}
		y, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: year %q", generic.ErrInvalidInput, s)
		}
		return y, nil
	}

	switch sub {
	case "today":
		d, err := h.Timeoff.Today(ctx)
		if err != nil {
			return "", err
		}
		if d.IsEmpty() {
			return "Nobody is away today.", nil
		}
		return timeoff.RenderDigest(d), nil

	case "remaining":
		y, err := year(arg(0))
		if err != nil {
			return "", err
		}
		r, err := h.Timeoff.Remaining(ctx, user, y)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("You have :beach: *%s* off days and :house_with_garden: *%s* WFH days left in %d.",
			r.Off.Value.String(), r.WFH.Value.String(), y), nil

	case "undo":
		if arg(0) == "" {
			return "", fmt.Errorf("%w: message id is required", generic.ErrInvalidInput)
		}
		if err := h.Timeoff.Cancel(ctx, user, generic.MessageID(arg(0))); err != nil {
			return "", err
		}
		return "Request cancelled.", nil

	case "tick":
		label, rows, err := h.Timeoff.TickBoard(ctx, arg(0))
		if err != nil {
			return "", err
		}
		return timeoff.RenderTickBoard(label, rows), nil

	case "stats":
		y, err := year(arg(0))
		if err != nil {
			return "", err
		}
		rows, err := h.Timeoff.Stats(ctx, user, y)
		if err != nil {
			return "", err
		}
		return timeoff.RenderStats(y, rows), nil

	case "extra":
		count, err := strconv.Atoi(arg(2))
		if err != nil || arg(0) == "" {
			return "", fmt.Errorf("%w: usage extra <username> <type> <count>", generic.ErrInvalidInput)
		}
		a, err := h.Timeoff.AdjustQuota(ctx, user, arg(0), timeoff.RequestType(arg(1)), count)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("*%s* extra for %d: off %d, wfh %d, late %d.", arg(0), a.Year, a.OffExtra, a.WFHExtra, a.LateExtra), nil

	case "extra-stats":
		y, rows, err := h.Timeoff.ExtraStats(ctx, user)
		if err != nil {
			return "", err
		}
		return timeoff.RenderExtraStats(y, rows), nil

	case "logs":
		ml, err := h.Timeoff.MemberLogs(ctx, user, arg(0))
		if err != nil {
			return "", err
		}
		return timeoff.RenderMemberLogs(ml.Username, ml.Remaining, ml.Entries), nil
	}
	return helpOff, nil
}
