// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/booking"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/model"
	"github.com/olegiv/rehearsal-go/internal/session"
	"github.com/olegiv/rehearsal-go/internal/util"
)

// errUsage marks errors already reported with command usage.
var errUsage = errors.New("usage error")

// InputLayout is the layout for times typed on the command line.
const InputLayout = "2006-01-02 15:04"

// descriptionWidth caps the description column of the rooms table.
const descriptionWidth = 40

// inputError is a malformed argument. Its text comes from the catalogue.
type inputError struct {
	key  string
	args []any
}

func (e *inputError) Error() string { return e.Localize(i18n.DefaultLanguage) }

func (e *inputError) Localize(lang string) string { return i18n.T(lang, e.key, e.args...) }

// localizedError carries the text of err in the configured language.
type localizedError struct {
	text string
	err  error
}

func (e *localizedError) Error() string { return e.text }

func (e *localizedError) Unwrap() error { return e.err }

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error
}

var commands = []command{
	{"rooms", "[-page N] [-size N] [-sort id,asc] [-refresh]", "List rooms", cmdRooms},
	{"room", "<id|name>", "Show one room", cmdRoom},
	{"register", "-username U -email E -password P [-first F] [-last L]", "Create an account", cmdRegister},
	{"login", "-user U -password P", "Log in and remember the session", cmdLogin},
	{"logout", "", "Forget the session", cmdLogout},
	{"whoami", "", "Show the logged in user", cmdWhoami},
	{"quote", "-room R -start T -end T", "Check a booking window and estimate its cost", cmdQuote},
	{"book", "-room R -start T -end T", "Book a room", cmdBook},
	{"bookings", "[-page N] [-size N]", "List your bookings", cmdBookings},
	{"cancel", "<booking id>", "Cancel one of your bookings", cmdCancel},
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	name := args[0]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		_, _ = fmt.Fprintf(stderr, "unknown command %q; run with -help for the command list\n", name)
		return errUsage
	}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: rehearsal %s %s\n", cmd.name, cmd.args)
		fs.PrintDefaults()
	}

	a, err := newApp(ctx, stdout, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("closing resources failed", "error", err)
		}
	}()

	err = cmd.run(ctx, a, fs, args[1:])
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return nil
	case errors.Is(err, errUsage):
		return err
	}
	return &localizedError{text: i18n.Localize(a.lang, err), err: err}
}

// parseFlags parses args and reports usage errors through errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func requireFlags(fs *flag.FlagSet, names ...string) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, n := range names {
		if !set[n] {
			_, _ = fmt.Fprintf(fs.Output(), "missing -%s\n", n)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func oneArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

// parseTime accepts InputLayout in loc or RFC 3339.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(InputLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, &inputError{key: "cli.invalid_time", args: []any{s, InputLayout}}
}

func cmdRooms(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	page := fs.Int("page", 0, "Zero-based page number")
	size := fs.Int("size", api.DefaultPageSize, "Rooms per page")
	sort := fs.String("sort", api.DefaultRoomSort, "Sort order, e.g. name,asc")
	refresh := fs.Bool("refresh", false, "Drop cached rooms before listing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *refresh {
		if err := a.catalog.Invalidate(ctx); err != nil {
			a.logger.Warn("dropping cached rooms failed", "error", err)
		}
	}

	result, err := a.catalog.List(ctx, *page, *size, *sort)
	if err != nil {
		return err
	}
	if len(result.Content) == 0 {
		_, _ = fmt.Fprintln(a.out, a.t("cli.no_rooms"))
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCAPACITY\tPRICE/H\tEQUIPMENT\tDESCRIPTION")
	for _, r := range result.Content {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Name, r.Capacity, booking.FormatCost(r.PricePerHour), strings.Join(r.Equipment, ", "),
			util.Truncate(r.Description, descriptionWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, a.t("cli.rooms_page", result.Number+1, max(result.TotalPages, 1), result.TotalElements))
	return nil
}

func cmdRoom(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := oneArg(fs)
	if err != nil {
		return err
	}

	r, err := a.catalog.Lookup(ctx, ref)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "%s (#%d)\n", r.Name, r.ID)
	_, _ = fmt.Fprintf(a.out, "  Capacity:  %d people\n", r.Capacity)
	_, _ = fmt.Fprintf(a.out, "  Price:     %s per hour\n", booking.FormatCost(r.PricePerHour))
	if len(r.Equipment) > 0 {
		_, _ = fmt.Fprintf(a.out, "  Equipment: %s\n", strings.Join(r.Equipment, ", "))
	}
	_, _ = fmt.Fprintf(a.out, "  Image:     %s\n", r.Image())
	if r.Description != "" {
		_, _ = fmt.Fprintf(a.out, "\n%s\n", r.Description)
	}
	return nil
}

func cmdRegister(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	var reg model.Registration
	fs.StringVar(&reg.Username, "username", "", "Username")
	fs.StringVar(&reg.Email, "email", "", "Email address")
	fs.StringVar(&reg.Password, "password", "", "Password")
	fs.StringVar(&reg.FirstName, "first", "", "First name (optional)")
	fs.StringVar(&reg.LastName, "last", "", "Last name (optional)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlags(fs, "username", "email", "password"); err != nil {
		return err
	}

	user, err := a.session.Register(ctx, reg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, a.t("cli.registered", user.Username))
	return nil
}

func cmdLogin(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	var creds model.Credentials
	fs.StringVar(&creds.UsernameOrEmail, "user", "", "Username or email")
	fs.StringVar(&creds.Password, "password", "", "Password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user", "password"); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, creds)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, a.t("cli.welcome", user.DisplayName()))
	return nil
}

func cmdLogout(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.session.Logout(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	_, _ = fmt.Fprintln(a.out, a.t("cli.logged_out"))
	return nil
}

func cmdWhoami(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	user, err := a.session.Refresh(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "%s <%s> (@%s)\n", user.DisplayName(), user.Email, user.Username)
	_, _ = fmt.Fprintf(a.out, "  Service: %s\n", a.client.BaseURL())
	return nil
}

// windowFlags binds the -room, -start and -end flags shared by quote and book.
type windowFlags struct {
	room, start, end string
}

func (w *windowFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&w.room, "room", "", "Room id or name")
	fs.StringVar(&w.start, "start", "", "Start time ("+InputLayout+")")
	fs.StringVar(&w.end, "end", "", "End time ("+InputLayout+")")
}

// prepare resolves the room and loads the window into a new flow.
func (w *windowFlags) prepare(ctx context.Context, a *app, fs *flag.FlagSet) (*model.Room, *booking.Flow, error) {
	if err := requireFlags(fs, "room", "start", "end"); err != nil {
		return nil, nil, err
	}
	start, err := parseTime(w.start, a.cfg.Location())
	if err != nil {
		return nil, nil, err
	}
	end, err := parseTime(w.end, a.cfg.Location())
	if err != nil {
		return nil, nil, err
	}
	room, err := a.catalog.Lookup(ctx, w.room)
	if err != nil {
		return nil, nil, err
	}

	flow := a.newFlow()
	flow.SetStart(start)
	flow.SetEnd(end)
	a.reportSnapped(flow, start, end)
	return room, flow, nil
}

// reportSnapped tells the user when the flow moved a typed time onto the
// minute step.
func (a *app) reportSnapped(flow *booking.Flow, start, end time.Time) {
	gotStart, gotEnd := flow.Selection()
	step := a.cfg.BusinessHours().MinuteStep
	loc := a.cfg.Location()
	if !gotStart.Equal(start) {
		_, _ = fmt.Fprintln(a.out, a.t("cli.adjusted", "-start", gotStart.In(loc).Format(booking.DisplayLayout), step))
	}
	if !gotEnd.Equal(end) {
		_, _ = fmt.Fprintln(a.out, a.t("cli.adjusted", "-end", gotEnd.In(loc).Format(booking.DisplayLayout), step))
	}
}

func printQuote(out io.Writer, room *model.Room, q booking.Quote) {
	_, _ = fmt.Fprintf(out, "%s, %s to %s\n", room.Name,
		q.Window.Start.Format(booking.DisplayLayout), q.Window.End.Format(booking.DisplayLayout))
	_, _ = fmt.Fprintf(out, "  Duration:       %s h\n", booking.FormatHours(q.Window.DurationHours))
	_, _ = fmt.Fprintf(out, "  Estimated cost: %s\n", booking.FormatCost(q.Cost))
}

func cmdQuote(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	var w windowFlags
	w.bind(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	room, flow, err := w.prepare(ctx, a, fs)
	if err != nil {
		return err
	}

	q := flow.Quote(*room)
	printQuote(a.out, room, q)
	if !q.Valid() {
		return q.Err
	}
	_, _ = fmt.Fprintln(a.out, "  "+a.t("cli.can_book"))
	return nil
}

func cmdBook(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	var w windowFlags
	w.bind(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	room, flow, err := w.prepare(ctx, a, fs)
	if err != nil {
		return err
	}

	if _, err := flow.Submit(ctx, *room); err != nil {
		if msg := flow.Error(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	b := flow.Confirmed()
	loc := a.cfg.Location()
	_, _ = fmt.Fprintln(a.out, a.t("cli.booked", b.RoomName, b.ID))
	_, _ = fmt.Fprintf(a.out, "  From:  %s\n", b.StartTime.In(loc).Format(booking.DisplayLayout))
	_, _ = fmt.Fprintf(a.out, "  To:    %s\n", b.EndTime.In(loc).Format(booking.DisplayLayout))
	_, _ = fmt.Fprintf(a.out, "  Total: %s\n", booking.FormatCost(b.TotalCost))
	return nil
}

func cmdBookings(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	page := fs.Int("page", 0, "Zero-based page number")
	size := fs.Int("size", api.DefaultPageSize, "Bookings per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}

	result, err := a.bookings.Mine(ctx, *page, *size)
	if err != nil {
		return err
	}
	if len(result.Content) == 0 {
		_, _ = fmt.Fprintln(a.out, a.t("cli.no_bookings"))
		return nil
	}

	upcoming, completed := booking.Upcoming(result.Content, time.Now())
	printBookings(a.out, a.t("cli.upcoming"), upcoming, a.cfg.Location())
	printBookings(a.out, a.t("cli.completed"), completed, a.cfg.Location())
	return nil
}

func printBookings(out io.Writer, title string, list []model.Booking, loc *time.Location) {
	if len(list) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "%s:\n", title)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, b := range list {
		_, _ = fmt.Fprintf(tw, "  #%d\t%s\t%s\t%s\t%s\n",
			b.ID, b.RoomName,
			b.StartTime.In(loc).Format(booking.DisplayLayout),
			b.EndTime.In(loc).Format("15:04"),
			booking.FormatCost(b.TotalCost))
	}
	_ = tw.Flush()
}

func cmdCancel(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	arg, err := oneArg(fs)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return &inputError{key: "cli.invalid_booking_id", args: []any{arg}}
	}
	if !a.session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}

	target := a.findBooking(ctx, id)
	if err := a.bookings.Cancel(ctx, target); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, a.t("cli.cancelled", id))
	return nil
}

// findBooking looks id up among the user's bookings so failures can name the
// room and time. An unknown id yields a bare booking.
func (a *app) findBooking(ctx context.Context, id int64) model.Booking {
	for page := 0; ; page++ {
		result, err := a.bookings.Mine(ctx, page, 50)
		if err != nil {
			break
		}
		for _, b := range result.Content {
			if b.ID == id {
				return b
			}
		}
		if !result.HasNext() || len(result.Content) == 0 {
			break
		}
	}
	return model.Booking{ID: id}
}
