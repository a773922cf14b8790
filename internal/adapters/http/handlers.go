package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"frontporch/internal/application/orchestrators"
	"frontporch/internal/application/projections"
	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// maxPeopleFields bounds how many first/last name pairs one form may carry.
const maxPeopleFields = 20

// notifyTimeout bounds one coordinator e-mail hand-off.
const notifyTimeout = 15 * time.Second

// homeData is rendered by index.html.
type homeData struct {
	Grid    projections.GetGridResult
	Added   int
	Dropped int
}

// handleHome renders the public grid.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	grid, err := projections.QueryGetGrid(r.Context(), projections.GetGridDeps{SignupStore: s.stores.SignupStore})
	if err != nil {
		internalError(w, err)
		return
	}
	q := r.URL.Query()
	added, _ := strconv.Atoi(q.Get("added"))
	dropped, _ := strconv.Atoi(q.Get("dropped"))

	s.renderPage(w, r, http.StatusOK, "index.html", "Volunteer Signup", pageData{
		Banner: s.banner,
		Data:   homeData{Grid: grid, Added: added, Dropped: dropped},
	})
}

// handleSignup books the submitted names into one slot.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	hour, err := strconv.Atoi(r.FormValue("hour"))
	if err != nil {
		http.Error(w, "Invalid slot", http.StatusBadRequest)
		return
	}
	count, err := strconv.Atoi(r.FormValue("people_count"))
	if err != nil || count < 1 || count > maxPeopleFields {
		http.Error(w, "Invalid number of people", http.StatusBadRequest)
		return
	}

	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		names = append(names, signup.FullName(
			r.FormValue(fmt.Sprintf("first_name_%d", i)),
			r.FormValue(fmt.Sprintf("last_name_%d", i)),
		))
	}

	result, err := orchestrators.ExecuteCreateSignup(r.Context(), orchestrators.CreateSignupInput{
		Day:   r.FormValue("day"),
		Hour:  hour,
		Names: names,
	}, orchestrators.CreateSignupDeps{SignupStore: s.stores.SignupStore, Now: s.opts.Now})
	if err != nil {
		if msg, ok := signupErrorMessage(err); ok {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		internalError(w, err)
		return
	}

	s.notifySignup(result)

	q := url.Values{}
	q.Set("added", strconv.Itoa(len(result.Accepted)))
	if len(result.Dropped) > 0 {
		q.Set("dropped", strconv.Itoa(len(result.Dropped)))
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

// signupErrorMessage maps booking errors to the text shown to volunteers.
func signupErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, slot.ErrInvalidSlot):
		return "Invalid slot", true
	case errors.Is(err, slot.ErrSlotUnavailable):
		return "This slot is not available", true
	case errors.Is(err, slot.ErrSlotFull):
		return "This slot is full", true
	case errors.Is(err, signup.ErrEmptyRequest):
		return "At least one name is required", true
	case errors.Is(err, signup.ErrNameTooLong):
		return "Names cannot exceed 100 characters", true
	}
	return "", false
}

// notifySignup e-mails coordinators in the background. Failures are logged only.
func (s *Server) notifySignup(result orchestrators.CreateSignupResult) {
	n := s.opts.Notify
	if n.Sender == nil || len(n.To) == 0 {
		return
	}
	accepted := make([]string, 0, len(result.Accepted))
	for _, a := range result.Accepted {
		accepted = append(accepted, a.Name)
	}

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		err := orchestrators.ExecuteNotifySignup(ctx, orchestrators.NotifySignupInput{
			Slot:     result.Slot,
			Accepted: accepted,
			Dropped:  result.Dropped,
		}, orchestrators.NotifySignupDeps{Sender: n.Sender, To: n.To, From: n.From})
		if err != nil {
			slog.Warn("signup_event", "event", "notify_failed", "slot", result.Slot.Key(), "error", err)
		}
	}()
}

// slotsResponse is the public availability document.
type slotsResponse struct {
	Capacity int                    `json:"capacity"`
	Slots    []projections.GridCell `json:"slots"`
}

// handleAPISlots serves availability as JSON for embedding on other sites.
func (s *Server) handleAPISlots(w http.ResponseWriter, r *http.Request) {
	grid, err := projections.QueryGetGrid(r.Context(), projections.GetGridDeps{SignupStore: s.stores.SignupStore})
	if err != nil {
		internalError(w, err)
		return
	}
	resp := slotsResponse{Capacity: grid.Capacity}
	for _, day := range grid.Days {
		for _, row := range grid.Rows {
			if c, ok := grid.Cell(day, row.Hour); ok {
				resp.Slots = append(resp.Slots, c)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealthz reports whether the database answers.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.stores.DB != nil {
		if err := s.stores.DB.Ping(r.Context()); err != nil {
			slog.Error("internal_error", "where", "healthz", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "where", "write_json", "error", err)
	}
}
