// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/rehearsal-go/internal/model"
)

// APIPrefix is the path under which FakeAPI mounts the service routes.
const APIPrefix = "/api"

// RecordedRequest is a request observed by FakeAPI.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

// failure is a canned error response.
type failure struct {
	status  int
	message string
	raw     string
}

type fakeAccount struct {
	user     model.User
	password string
}

// FakeAPI is an in-process stand-in for the booking service, served by
// httptest. Routes mirror the real API under /api.
type FakeAPI struct {
	Server *httptest.Server

	mu              sync.Mutex
	accounts        map[string]*fakeAccount // by username
	tokens          map[string]string       // token -> username
	rooms           map[int64]model.Room
	bookings        []model.Booking
	nextUserID      int64
	nextBookingID   int64
	failures        map[string]failure
	requests        []RecordedRequest
	bookingsAsArray bool
}

// NewFakeAPI starts a FakeAPI that is shut down when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		accounts:      make(map[string]*fakeAccount),
		tokens:        make(map[string]string),
		rooms:         make(map[int64]model.Room),
		failures:      make(map[string]failure),
		nextUserID:    1,
		nextBookingID: 1,
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API base URL to hand to api.New.
func (f *FakeAPI) URL() string {
	return f.Server.URL + APIPrefix
}

// AddUser registers an account and returns the stored user.
func (f *FakeAPI) AddUser(u model.User, password string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.nextUserID
	}
	f.nextUserID = max(f.nextUserID, u.ID) + 1
	f.accounts[u.Username] = &fakeAccount{user: u, password: password}
	return u
}

// IssueToken returns a valid token for username without a login round trip.
func (f *FakeAPI) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := fmt.Sprintf("token-%s-%d", username, len(f.tokens)+1)
	f.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token.
func (f *FakeAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// AddRoom stores a room.
func (f *FakeAPI) AddRoom(r model.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[r.ID] = r
}

// AddBooking stores an existing booking.
func (f *FakeAPI) AddBooking(b model.Booking) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == 0 {
		b.ID = f.nextBookingID
	}
	f.nextBookingID = max(f.nextBookingID, b.ID) + 1
	f.bookings = append(f.bookings, b)
	return b
}

// Bookings returns a copy of the stored bookings.
func (f *FakeAPI) Bookings() []model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Booking(nil), f.bookings...)
}

// Fail makes every request to "METHOD /path" (path relative to /api) answer
// with status and a {"message"} body. An empty message sends no body.
func (f *FakeAPI) Fail(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, message: message}
}

// FailRaw is like Fail but writes body verbatim.
func (f *FakeAPI) FailRaw(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, raw: body}
}

// Recover removes a failure installed with Fail or FailRaw.
func (f *FakeAPI) Recover(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, route)
}

// BookingsAsArray makes my-bookings answer with a bare array instead of a page.
func (f *FakeAPI) BookingsAsArray(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookingsAsArray = v
}

// Requests returns the requests observed so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// RequestCount returns how many requests matched "METHOD /path".
func (f *FakeAPI) RequestCount(route string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method+" "+strings.TrimPrefix(r.Path, APIPrefix) == route {
			n++
		}
	}
	return n
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/auth/register", f.register)
		r.Post("/auth/login", f.login)
		r.Get("/rooms", f.listRooms)
		r.Get("/rooms/{id}", f.getRoom)

		r.Group(func(r chi.Router) {
			r.Use(f.requireToken)
			r.Get("/users/me", f.me)
			r.Post("/bookings", f.createBooking)
			r.Get("/bookings/my-bookings", f.myBookings)
			r.Delete("/bookings/{id}", f.cancelBooking)
		})
	})
	return r
}

// record logs the request and applies canned failures.
func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		fail, ok := f.failures[r.Method+" "+strings.TrimPrefix(r.URL.Path, APIPrefix)]
		f.mu.Unlock()

		if ok {
			switch {
			case fail.raw != "":
				w.WriteHeader(fail.status)
				_, _ = w.Write([]byte(fail.raw))
			case fail.message != "":
				writeMessage(w, fail.status, fail.message)
			default:
				w.WriteHeader(fail.status)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		username, valid := f.tokens[token]
		f.mu.Unlock()
		if !ok || !valid {
			writeMessage(w, http.StatusUnauthorized, "Full authentication is required to access this resource")
			return
		}
		r.Header.Set("X-Fake-Username", username)
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[reg.Username]; exists {
		writeMessage(w, http.StatusConflict, "Username is already taken!")
		return
	}
	for _, acc := range f.accounts {
		if acc.user.Email == reg.Email {
			writeMessage(w, http.StatusConflict, "Email Address already in use!")
			return
		}
	}

	u := model.User{
		ID:        f.nextUserID,
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}
	f.nextUserID++
	f.accounts[u.Username] = &fakeAccount{user: u, password: reg.Password}
	writeJSON(w, http.StatusCreated, u)
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	f.mu.Lock()
	var account *fakeAccount
	for _, acc := range f.accounts {
		if acc.user.Username == creds.UsernameOrEmail || acc.user.Email == creds.UsernameOrEmail {
			account = acc
			break
		}
	}
	f.mu.Unlock()

	if account == nil || account.password != creds.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token := f.IssueToken(account.user.Username)
	writeJSON(w, http.StatusOK, model.LoginResponse{AccessToken: token, TokenType: "Bearer"})
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	acc := f.accounts[r.Header.Get("X-Fake-Username")]
	f.mu.Unlock()
	if acc == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (f *FakeAPI) listRooms(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	f.mu.Lock()
	rooms := make([]model.Room, 0, len(f.rooms))
	for _, room := range f.rooms {
		rooms = append(rooms, room)
	}
	f.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	if strings.HasSuffix(r.URL.Query().Get("sort"), ",desc") {
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID > rooms[j].ID })
	}
	writeJSON(w, http.StatusOK, paginate(rooms, page, size))
}

func (f *FakeAPI) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid room id")
		return
	}
	f.mu.Lock()
	room, ok := f.rooms[id]
	f.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("Room not found with id : '%d'", id))
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (f *FakeAPI) createBooking(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if !req.EndTime.After(req.StartTime.Time) {
		writeMessage(w, http.StatusBadRequest, "End time must be after start time.")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[req.RoomID]
	if !ok {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("Room not found with id : '%d'", req.RoomID))
		return
	}
	for _, b := range f.bookings {
		if b.RoomID == req.RoomID && req.StartTime.Before(b.EndTime.Time) && b.StartTime.Before(req.EndTime.Time) {
			writeMessage(w, http.StatusConflict, "Room is not available for the selected time slot.")
			return
		}
	}

	acc := f.accounts[r.Header.Get("X-Fake-Username")]
	hours := req.EndTime.Sub(req.StartTime.Time).Hours()
	booking := model.Booking{
		ID:        f.nextBookingID,
		RoomID:    room.ID,
		RoomName:  room.Name,
		UserID:    acc.user.ID,
		Username:  acc.user.Username,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CreatedAt: model.NewTimestamp(time.Now()),
		TotalCost: math.Round(hours*room.PricePerHour*100) / 100,
	}
	f.nextBookingID++
	f.bookings = append(f.bookings, booking)
	writeJSON(w, http.StatusCreated, booking)
}

func (f *FakeAPI) myBookings(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	username := r.Header.Get("X-Fake-Username")

	f.mu.Lock()
	var mine []model.Booking
	for _, b := range f.bookings {
		if b.Username == username {
			mine = append(mine, b)
		}
	}
	asArray := f.bookingsAsArray
	f.mu.Unlock()

	result := paginate(mine, page, size)
	if asArray {
		writeJSON(w, http.StatusOK, result.Content)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (f *FakeAPI) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid booking id")
		return
	}
	username := r.Header.Get("X-Fake-Username")

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bookings {
		if b.ID != id {
			continue
		}
		if b.Username != username {
			writeMessage(w, http.StatusForbidden, "You are not allowed to cancel this booking.")
			return
		}
		f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeMessage(w, http.StatusNotFound, fmt.Sprintf("Booking not found with id : '%d'", id))
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}
	return max(page, 0), size
}

func paginate[T any](items []T, page, size int) model.Page[T] {
	total := len(items)
	totalPages := (total + size - 1) / size
	from := min(page*size, total)
	to := min(from+size, total)
	content := items[from:to]
	if content == nil {
		content = []T{}
	}
	return model.Page[T]{
		Content:       content,
		TotalPages:    totalPages,
		TotalElements: int64(total),
		Number:        page,
		Size:          size,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status":  status,
		"message": message,
	})
}
