// Package apitest runs an in-memory habit service for tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitrack/internal/models"
)

const dateFormat = "2006-01-02"

type failure struct {
	status  int
	message string
}

// Server is a fake habit service mounted at /api with a /health probe.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	users       map[string]string
	habits      map[int64]models.Habit
	nextID      int64
	completions map[int64]map[string]struct{}
	failures    map[string][]failure
	calls       []string
	today       string
	healthFails int

	// Hook, when set, runs at the start of every request outside the lock.
	Hook func(r *http.Request)
	// HoldResponse, when set, runs after the handler has produced its
	// response and before it is sent.
	HoldResponse func(r *http.Request)
}

// NewServer starts a server that accepts token as the only valid session.
func NewServer(token string) *Server {
	s := &Server{
		token:       token,
		users:       map[string]string{},
		habits:      map[int64]models.Habit{},
		nextID:      1,
		completions: map[int64]map[string]struct{}{},
		failures:    map[string][]failure{},
		today:       time.Now().Format(dateFormat),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// BaseURL is the API prefix to hand to api.Options.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// HealthURL is the warm-up probe address.
func (s *Server) HealthURL() string { return s.URL + "/health" }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/signup", s.signup)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/habits", s.listHabits)
			r.Post("/habits", s.createHabit)
			r.Get("/habits/completions", s.completionsForDate)
			r.Get("/habits/{id}", s.getHabit)
			r.Delete("/habits/{id}", s.deleteHabit)
			r.Post("/habits/{id}/completions", s.mark)
			r.Get("/habits/{id}/completions", s.completionsForHabit)
			r.Delete("/habits/{id}/completions/{date}", s.unmark)
		})
	})
	return r
}

// SetToday pins the server's notion of today (used for default dates and streaks).
func (s *Server) SetToday(date string) {
	s.mu.Lock()
	s.today = date
	s.mu.Unlock()
}

// AddUser registers credentials accepted by /auth/login.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	s.users[email] = password
	s.mu.Unlock()
}

// AddHabit seeds a habit and returns its id.
func (s *Server) AddHabit(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addHabitLocked(name, nil)
}

// Complete seeds a completion.
func (s *Server) Complete(habitID int64, dates ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range dates {
		s.completeLocked(habitID, d)
	}
}

// HasCompletion reports whether the server holds (habitID, date).
func (s *Server) HasCompletion(habitID int64, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completions[habitID][date]
	return ok
}

// FailNext makes the next request matching "METHOD /path" (path without the
// /api prefix, query excluded) answer with status and message.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
	s.mu.Unlock()
}

// FailHealth makes the next n health probes answer 503.
func (s *Server) FailHealth(n int) {
	s.mu.Lock()
	s.healthFails = n
	s.mu.Unlock()
}

// Calls returns every request seen so far as "METHOD /path?query".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CountCalls counts requests whose recorded form has the given prefix.
func (s *Server) CountCalls(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls clears the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Hook != nil {
			s.Hook(r)
		}
		path := strings.TrimPrefix(r.URL.Path, "/api")
		entry := r.Method + " " + path
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}

		s.mu.Lock()
		s.calls = append(s.calls, entry)
		key := r.Method + " " + path
		var fail *failure
		if queued := s.failures[key]; len(queued) > 0 {
			fail = &queued[0]
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			writeError(w, fail.status, fail.message)
			return
		}
		if s.HoldResponse == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)
		s.HoldResponse(r)
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	failing := s.healthFails > 0
	if failing {
		s.healthFails--
	}
	s.mu.Unlock()
	if failing {
		writeError(w, http.StatusServiceUnavailable, "starting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if !decode(w, r, &creds) {
		return
	}
	s.mu.Lock()
	password, ok := s.users[creds.Email]
	s.mu.Unlock()
	if !ok || password != creds.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: &s.token})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if !decode(w, r, &creds) {
		return
	}
	s.mu.Lock()
	_, exists := s.users[creds.Email]
	if !exists {
		s.users[creds.Email] = creds.Password
	}
	s.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: &s.token})
}

func (s *Server) listHabits(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.habits))
	for id := range s.habits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Habit, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.withStreaksLocked(s.habits[id]))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	var in models.NewHabit
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Habit name is required")
		return
	}
	s.mu.Lock()
	id := s.addHabitLocked(in.Name, in.Description)
	habit := s.withStreaksLocked(s.habits[id])
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	habit, exists := s.habits[id]
	if exists {
		habit = s.withStreaksLocked(habit)
	}
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	_, exists := s.habits[id]
	delete(s.habits, id)
	delete(s.completions, id)
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mark(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	habit, exists := s.habits[id]
	if !exists {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.today
	}
	if _, err := time.Parse(dateFormat, date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}
	if _, done := s.completions[id][date]; done {
		writeError(w, http.StatusConflict, "Habit already completed for this date")
		return
	}
	s.completeLocked(id, date)
	writeJSON(w, http.StatusCreated, models.Completion{
		HabitID:          id,
		HabitName:        habit.Name,
		HabitDescription: habit.Description,
		CompletionDate:   date,
	})
}

func (s *Server) unmark(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")
	s.mu.Lock()
	_, done := s.completions[id][date]
	delete(s.completions[id], date)
	s.mu.Unlock()
	if !done {
		writeError(w, http.StatusNotFound, "Completion not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completionsForDate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.today
	}
	out := []models.Completion{}
	for id, dates := range s.completions {
		if _, ok := dates[date]; ok {
			out = append(out, s.completionLocked(id, date))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].HabitID < out[j].HabitID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) completionsForHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, exists := s.habits[id]; !exists {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	dates := sortedDates(s.completions[id])
	out := make([]models.Completion, 0, len(dates))
	for _, d := range dates {
		out = append(out, s.completionLocked(id, d))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addHabitLocked(name string, description *string) int64 {
	id := s.nextID
	s.nextID++
	s.habits[id] = models.Habit{ID: id, Name: name, Description: description}
	return id
}

func (s *Server) completeLocked(habitID int64, date string) {
	if s.completions[habitID] == nil {
		s.completions[habitID] = map[string]struct{}{}
	}
	s.completions[habitID][date] = struct{}{}
}

func (s *Server) completionLocked(habitID int64, date string) models.Completion {
	habit := s.habits[habitID]
	return models.Completion{
		HabitID:          habitID,
		HabitName:        habit.Name,
		HabitDescription: habit.Description,
		CompletionDate:   date,
	}
}

// withStreaksLocked fills in streak counters the way the real service does:
// the current run must end today or yesterday.
func (s *Server) withStreaksLocked(h models.Habit) models.Habit {
	current, longest := Streaks(sortedDates(s.completions[h.ID]), s.today)
	h.CurrentStreak = &current
	h.LongestStreak = &longest
	return h
}

// Streaks computes the current and longest run of consecutive days.
func Streaks(sorted []string, today string) (current, longest int) {
	var prev time.Time
	run := 0
	for i, d := range sorted {
		t, err := time.Parse(dateFormat, d)
		if err != nil {
			continue
		}
		if i > 0 && t.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = t
	}
	if len(sorted) == 0 {
		return 0, 0
	}
	todayT, err := time.Parse(dateFormat, today)
	if err != nil {
		return 0, longest
	}
	if gap := todayT.Sub(prev); gap == 0 || gap == 24*time.Hour {
		current = run
	}
	return current, longest
}

func sortedDates(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func habitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid habit id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Code: status, Message: message})
}
