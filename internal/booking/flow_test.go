// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/model"
	"github.com/olegiv/rehearsal-go/internal/testutil"
)

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

type creatorFunc func(ctx context.Context, req model.BookingRequest) (*model.Booking, error)

func (fn creatorFunc) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	return fn(ctx, req)
}

var studioA = model.Room{ID: 1, Name: "Studio A", Capacity: 5, PricePerHour: 20}

func fixedNow() time.Time { return at(1, 12, 0) }

func newTestFlow(creator Creator, auth Authenticator) *Flow {
	return NewFlow(FlowOptions{
		Creator: creator,
		Auth:    auth,
		Hours:   utcHours(),
		Logger:  testutil.TestLoggerSilent(),
		Now:     fixedNow,
	})
}

func TestFlow_Quote(t *testing.T) {
	f := newTestFlow(nil, staticAuth(true))

	q := f.Quote(studioA)
	assert.ErrorIs(t, q.Err, ErrMissingTime)
	assert.False(t, q.Valid())
	assert.Zero(t, q.Cost)

	f.SetStart(at(4, 10, 0))
	f.SetEnd(at(4, 12, 30))
	q = f.Quote(studioA)
	assert.True(t, q.Valid())
	assert.Equal(t, 2.5, q.Window.DurationHours)
	assert.Equal(t, 50.0, q.Cost)

	f.SetStart(at(4, 9, 0))
	q = f.Quote(studioA)
	assert.ErrorIs(t, q.Err, ErrStartsTooEarly)
}

func TestFlow_SubmitSuccessClearsSelection(t *testing.T) {
	var got model.BookingRequest
	creator := creatorFunc(func(_ context.Context, req model.BookingRequest) (*model.Booking, error) {
		got = req
		return &model.Booking{
			ID: 42, RoomID: req.RoomID, RoomName: "Studio A",
			StartTime: req.StartTime, EndTime: req.EndTime,
			TotalCost: 49.99,
		}, nil
	})
	f := newTestFlow(creator, staticAuth(true))
	f.SetStart(at(4, 10, 0))
	f.SetEnd(at(4, 12, 30))

	b, err := f.Submit(context.Background(), studioA)
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.RoomID)
	assert.True(t, got.StartTime.Equal(at(4, 10, 0)))
	assert.True(t, got.EndTime.Equal(at(4, 12, 30)))

	assert.Equal(t, StateSuccess, f.State())
	assert.Equal(t, 49.99, f.Confirmed().TotalCost, "server cost is authoritative")
	assert.Equal(t, b, f.Confirmed())
	assert.Empty(t, f.Error())

	start, end := f.Selection()
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	f.SetStart(at(5, 10, 0))
	assert.Equal(t, StateIdle, f.State())
	assert.Nil(t, f.Confirmed())
}

func TestFlow_SubmitFailureKeepsSelection(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message verbatim",
			err:     &api.Error{Op: "create booking", Status: http.StatusConflict, Message: "Room is not available for the selected time slot."},
			wantMsg: "Room is not available for the selected time slot.",
		},
		{
			name:    "status without message",
			err:     &api.Error{Op: "create booking", Status: http.StatusInternalServerError},
			wantMsg: "Could not create the booking. The room may be unavailable or the times are invalid.",
		},
		{
			name:    "network error",
			err:     errors.Join(api.ErrNetwork, errors.New("connection refused")),
			wantMsg: "Could not create the booking. The room may be unavailable or the times are invalid.",
		},
		{
			name:    "undecodable response",
			err:     errors.New("create booking: decoding response: unexpected EOF"),
			wantMsg: "Could not create the booking. The room may be unavailable or the times are invalid.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := creatorFunc(func(context.Context, model.BookingRequest) (*model.Booking, error) {
				return nil, tt.err
			})
			f := newTestFlow(creator, staticAuth(true))
			f.SetStart(at(4, 10, 0))
			f.SetEnd(at(4, 12, 0))

			_, err := f.Submit(context.Background(), studioA)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, StateIdle, f.State())
			assert.Equal(t, tt.wantMsg, f.Error())
			assert.Nil(t, f.Confirmed())

			start, end := f.Selection()
			assert.Equal(t, at(4, 10, 0), start)
			assert.Equal(t, at(4, 12, 0), end)

			f.SetEnd(at(4, 13, 0))
			assert.Empty(t, f.Error(), "editing clears the error")
		})
	}
}

func TestFlow_SubmitRequiresValidWindow(t *testing.T) {
	calls := 0
	creator := creatorFunc(func(context.Context, model.BookingRequest) (*model.Booking, error) {
		calls++
		return &model.Booking{}, nil
	})
	f := newTestFlow(creator, staticAuth(true))
	f.SetStart(at(4, 12, 0))
	f.SetEnd(at(4, 11, 0))

	_, err := f.Submit(context.Background(), studioA)
	assert.ErrorIs(t, err, ErrEndBeforeStart)
	assert.Equal(t, "end must be after start", f.Error())
	assert.Equal(t, StateIdle, f.State())
	assert.Zero(t, calls)

	f.SetStart(at(1, 10, 0))
	f.SetEnd(at(1, 11, 0))
	_, err = f.Submit(context.Background(), studioA)
	assert.ErrorIs(t, err, ErrTooSoon)
	assert.Zero(t, calls)
}

func TestFlow_SnapsSelectionToStep(t *testing.T) {
	f := newTestFlow(nil, staticAuth(true))
	f.SetStart(at(4, 10, 17).Add(42 * time.Second))
	f.SetEnd(at(4, 12, 59))

	start, end := f.Selection()
	assert.Equal(t, at(4, 10, 0), start)
	assert.Equal(t, at(4, 12, 30), end)
	assert.True(t, f.Quote(studioA).Valid())

	f.SetEnd(time.Time{})
	_, end = f.Selection()
	assert.True(t, end.IsZero(), "clearing a selection is not snapped")
}

func TestFlow_MessagesInSpanish(t *testing.T) {
	creator := creatorFunc(func(context.Context, model.BookingRequest) (*model.Booking, error) {
		return nil, &api.Error{Op: "create booking", Status: http.StatusInternalServerError}
	})
	f := NewFlow(FlowOptions{
		Creator: creator,
		Auth:    staticAuth(true),
		Hours:   utcHours(),
		Logger:  testutil.TestLoggerSilent(),
		Now:     fixedNow,
		Lang:    "es",
	})

	f.SetStart(at(4, 12, 0))
	f.SetEnd(at(4, 11, 0))
	_, err := f.Submit(context.Background(), studioA)
	assert.ErrorIs(t, err, ErrEndBeforeStart)
	assert.Equal(t, "La hora de fin debe ser posterior a la hora de inicio.", f.Error())

	f.SetEnd(at(4, 14, 0))
	_, err = f.Submit(context.Background(), studioA)
	require.Error(t, err)
	assert.Equal(t, "Error al crear la reserva. La sala podría no estar disponible o los horarios son incorrectos.", f.Error())
}

func TestFlow_SubmitRequiresSession(t *testing.T) {
	calls := 0
	creator := creatorFunc(func(context.Context, model.BookingRequest) (*model.Booking, error) {
		calls++
		return &model.Booking{}, nil
	})
	f := newTestFlow(creator, staticAuth(false))
	f.SetStart(at(4, 10, 0))
	f.SetEnd(at(4, 11, 0))

	_, err := f.Submit(context.Background(), studioA)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, "you must log in to book", f.Error())
	assert.Zero(t, calls)
}

func TestFlow_RejectsConcurrentSubmit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	creator := creatorFunc(func(_ context.Context, req model.BookingRequest) (*model.Booking, error) {
		close(entered)
		<-release
		return &model.Booking{ID: 1, StartTime: req.StartTime, EndTime: req.EndTime}, nil
	})
	f := newTestFlow(creator, staticAuth(true))
	f.SetStart(at(4, 10, 0))
	f.SetEnd(at(4, 11, 0))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.Submit(context.Background(), studioA)
		assert.NoError(t, err)
	}()

	<-entered
	assert.Equal(t, StateSubmitting, f.State())
	_, err := f.Submit(context.Background(), studioA)
	assert.ErrorIs(t, err, ErrSubmitting)

	close(release)
	wg.Wait()
	assert.Equal(t, StateSuccess, f.State())
}

func TestFlow_AgainstAPI(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser(model.User{ID: 7, Username: "ana"}, "secret")
	fake.AddRoom(studioA)

	client, err := api.New(api.Options{BaseURL: fake.URL(), Logger: testutil.TestLoggerSilent()})
	require.NoError(t, err)
	client.Credential().Set(fake.IssueToken("ana"))

	f := newTestFlow(client, staticAuth(true))
	f.SetStart(at(4, 10, 0))
	f.SetEnd(at(4, 12, 30))

	b, err := f.Submit(context.Background(), studioA)
	require.NoError(t, err)
	assert.Equal(t, 50.0, b.TotalCost)
	assert.Equal(t, "Studio A", b.RoomName)
	assert.Equal(t, 150*time.Minute, b.Duration(), "echoed times keep the requested duration")

	// Same slot again conflicts; the server message is shown verbatim.
	f.SetStart(at(4, 11, 0))
	f.SetEnd(at(4, 12, 0))
	_, err = f.Submit(context.Background(), studioA)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, api.StatusCode(err))
	assert.Equal(t, "Room is not available for the selected time slot.", f.Error())
	assert.Equal(t, StateIdle, f.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "State(9)", State(9).String())
}
