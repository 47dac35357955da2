// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/rehearsal-go/internal/model"
	"github.com/olegiv/rehearsal-go/internal/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// cli points the command at a fresh fake service and data directory.
func cli(t *testing.T) (*testutil.FakeAPI, func(args ...string) result) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser(model.User{ID: 7, Username: "ana", Email: "ana@example.com", FirstName: "Ana"}, "secret")
	fake.AddRoom(model.Room{ID: 1, Name: "Studio A", Capacity: 5, PricePerHour: 20, Equipment: []string{"drums", "PA"}})
	fake.AddRoom(model.Room{ID: 2, Name: "Sala Grande", Capacity: 12, PricePerHour: 35.5,
		Description: "<p>Big hall with a <b>grand piano</b> and room for a full band</p>"})

	dir := t.TempDir()
	t.Setenv("RR_API_BASE_URL", fake.URL())
	t.Setenv("RR_TOKEN_STORE", "file")
	t.Setenv("RR_TOKEN_SECRET", "")
	t.Setenv("RR_DATA_DIR", dir)
	t.Setenv("RR_TIMEZONE", "UTC")
	t.Setenv("RR_REDIS_URL", "")
	t.Setenv("RR_MIN_LEAD", "0")
	t.Setenv("RR_LOG_LEVEL", "error")
	t.Setenv("RR_LANG", "en")
	t.Setenv("RR_ENV", "production")

	envFile := filepath.Join(dir, "missing.env")
	return fake, func(args ...string) result {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), append([]string{"-env", envFile}, args...), &stdout, &stderr)
		return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "rehearsal-go")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-h"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	for _, c := range commands {
		assert.Contains(t, stdout.String(), c.name)
	}
	assert.Contains(t, stdout.String(), "RR_API_BASE_URL")
}

func TestRun_NoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_UnknownCommand(t *testing.T) {
	_, rr := cli(t)
	res := rr("dance")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `unknown command "dance"`)
}

func TestRun_BadConfig(t *testing.T) {
	_, rr := cli(t)
	t.Setenv("RR_LOG_LEVEL", "loud")
	res := rr("rooms")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "RR_LOG_LEVEL")
}

func TestRooms(t *testing.T) {
	_, rr := cli(t)

	res := rr("rooms")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Studio A")
	assert.Contains(t, res.stdout, "drums, PA")
	assert.Contains(t, res.stdout, "35.50")
	assert.Contains(t, res.stdout, "Page 1 of 1 (2 rooms)")
	assert.Contains(t, res.stdout, "DESCRIPTION")
	assert.Contains(t, res.stdout, "Big hall with a grand piano and room ...")
	assert.NotContains(t, res.stdout, "full band")

	res = rr("rooms", "-refresh")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Studio A")
}

func TestRoom(t *testing.T) {
	_, rr := cli(t)

	res := rr("room", "2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Sala Grande (#2)")
	assert.Contains(t, res.stdout, "12 people")
	assert.Contains(t, res.stdout, model.DefaultRoomImage)

	res = rr("room", "sala-grande")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Sala Grande (#2)")

	res = rr("room", "Nowhere")
	assert.Equal(t, 1, res.code)

	res = rr("room")
	assert.Equal(t, 2, res.code)
}

func TestRegisterLoginWhoamiLogout(t *testing.T) {
	fake, rr := cli(t)

	res := rr("whoami")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not logged in")

	res = rr("register", "-username", "luis", "-email", "luis@example.com", "-password", "pw")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Registered luis")

	res = rr("register", "-username", "luis")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "missing -email")

	res = rr("login", "-user", "ana", "-password", "wrong")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid credentials")

	res = rr("login", "-user", "ana", "-password", "secret")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Welcome, Ana.")
	before := fake.RequestCount("GET /users/me")

	// the token survives between invocations
	res = rr("whoami")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ana@example.com")
	assert.Contains(t, res.stdout, "Service: "+fake.URL())
	assert.Equal(t, 2, fake.RequestCount("GET /users/me")-before, "whoami restores the session and refetches the profile")

	res = rr("logout")
	require.Equal(t, 0, res.code, res.stderr)

	res = rr("whoami")
	assert.Equal(t, 1, res.code)
}

func TestQuote(t *testing.T) {
	_, rr := cli(t)

	res := rr("quote", "-room", "1", "-start", "2030-03-04 18:00", "-end", "2030-03-04 20:30")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "2.5 h")
	assert.Contains(t, res.stdout, "50.00")
	assert.Contains(t, res.stdout, "can be booked")

	res = rr("quote", "-room", "1", "-start", "2030-03-04 08:00", "-end", "2030-03-04 11:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "error:")

	res = rr("quote", "-room", "1", "-start", "tomorrow", "-end", "2030-03-04 11:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid time")

	res = rr("quote", "-room", "1")
	assert.Equal(t, 2, res.code)
}

func TestBookListCancel(t *testing.T) {
	fake, rr := cli(t)

	res := rr("book", "-room", "Studio A", "-start", "2030-03-04 18:00", "-end", "2030-03-04 20:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "log in")
	assert.Empty(t, fake.Bookings())

	require.Equal(t, 0, rr("login", "-user", "ana", "-password", "secret").code)

	res = rr("book", "-room", "Studio A", "-start", "2030-03-04 18:00", "-end", "2030-03-04 20:00")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Booked Studio A")
	assert.Contains(t, res.stdout, "04/03/2030 18:00")
	assert.Contains(t, res.stdout, "Total: 40.00")
	require.Len(t, fake.Bookings(), 1)

	// overlapping window gets the server's message
	res = rr("book", "-room", "1", "-start", "2030-03-04 19:00", "-end", "2030-03-04 21:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Room is not available for the selected time slot.")

	fake.AddBooking(model.Booking{
		RoomID:    2,
		RoomName:  "Sala Grande",
		UserID:    7,
		Username:  "ana",
		StartTime: model.NewTimestamp(time.Date(2020, 1, 10, 12, 0, 0, 0, time.UTC)),
		EndTime:   model.NewTimestamp(time.Date(2020, 1, 10, 14, 0, 0, 0, time.UTC)),
		TotalCost: 71,
	})

	res = rr("bookings")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Upcoming:")
	assert.Contains(t, res.stdout, "Completed:")
	assert.Contains(t, res.stdout, "Sala Grande")

	id := fake.Bookings()[0].ID
	res = rr("cancel", strconv.FormatInt(id, 10))
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Cancelled booking")
	assert.Len(t, fake.Bookings(), 1)

	res = rr("cancel", strconv.FormatInt(id, 10))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "cancel booking")

	res = rr("cancel", "abc")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid booking id")
}

func TestQuote_SnapsToMinuteStep(t *testing.T) {
	_, rr := cli(t)

	res := rr("quote", "-room", "1", "-start", "2030-03-04 18:10", "-end", "2030-03-04 20:45")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "-start adjusted to 04/03/2030 18:00 to fit the 30 minute step.")
	assert.Contains(t, res.stdout, "-end adjusted to 04/03/2030 20:30 to fit the 30 minute step.")
	assert.Contains(t, res.stdout, "2.5 h")

	res = rr("quote", "-room", "1", "-start", "2030-03-04 18:00", "-end", "2030-03-04 20:00")
	require.Equal(t, 0, res.code, res.stderr)
	assert.NotContains(t, res.stdout, "adjusted")
}

func TestMessagesInSpanish(t *testing.T) {
	fake, rr := cli(t)
	t.Setenv("RR_LANG", "es")

	res := rr("login", "-user", "ana", "-password", "wrong")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Credenciales inválidas.")

	res = rr("book", "-room", "1", "-start", "2030-03-04 18:00", "-end", "2030-03-04 20:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Debes iniciar sesión para hacer una reserva.")

	res = rr("login", "-user", "ana", "-password", "secret")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Bienvenido, Ana.")

	res = rr("quote", "-room", "1", "-start", "2030-03-04 08:00", "-end", "2030-03-04 11:00")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "La reserva empieza demasiado temprano.")

	res = rr("cancel", "abc")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `ID de reserva inválido "abc"`)

	// server messages are shown as sent
	fake.Fail("GET /bookings/my-bookings", http.StatusInternalServerError, "Database unavailable")
	res = rr("bookings")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Database unavailable")

	fake.Recover("GET /bookings/my-bookings")
	res = rr("bookings")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No tienes reservas.")
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	got, err := parseTime("2030-03-04 18:30", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 3, 4, 16, 30, 0, 0, time.UTC)))

	got, err = parseTime("2030-03-04T18:30:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Hour())

	_, err = parseTime("18:30", loc)
	assert.Error(t, err)
}
