package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"frontporch/internal/adapters/http/middleware"
	"frontporch/internal/application/orchestrators"
	"frontporch/internal/application/projections"
	"frontporch/internal/domain/audit"
	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// dashboardData is rendered by admin_dashboard.html.
type dashboardData struct {
	Grid     projections.GetGridResult
	Activity []audit.Event
}

// handleAdmin renders the dashboard for admins and the login form for everyone else.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		s.renderPage(w, r, http.StatusOK, "admin_login.html", "Admin Login", pageData{})
		return
	}
	grid, err := projections.QueryGetGrid(r.Context(), projections.GetGridDeps{SignupStore: s.stores.SignupStore})
	if err != nil {
		internalError(w, err)
		return
	}
	activity, err := projections.QueryGetRecentActivity(r.Context(),
		projections.GetRecentActivityDeps{AuditStore: s.stores.AuditStore}, projections.DefaultActivityLimit)
	if err != nil {
		internalError(w, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "admin_dashboard.html", "Admin Dashboard", pageData{
		Data: dashboardData{Grid: grid, Activity: activity},
	})
}

// handleAdminLogin verifies credentials and sets the session cookie.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	result, err := orchestrators.ExecuteAdminLogin(r.Context(), orchestrators.AdminLoginInput{
		Username: username,
		Password: r.FormValue("password"),
	}, orchestrators.AdminLoginDeps{
		AdminStore: s.stores.AdminStore,
		Sessions:   s.stores.Sessions,
		Now:        s.opts.Now,
	})
	if errors.Is(err, orchestrators.ErrAuthFailure) {
		if username == "" {
			username = "(blank)"
		}
		s.recordAudit(r, username, audit.ActionLoginFailed, "", "")
		s.renderPage(w, r, http.StatusUnauthorized, "admin_login.html", "Admin Login", pageData{
			Error: "Invalid credentials",
		})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	s.recordAudit(r, username, audit.ActionLogin, "", "")
	middleware.SetSessionCookie(w, result.Token, s.opts.SecureCookies)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminLogout ends the session and clears the cookie.
func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	err := orchestrators.ExecuteAdminLogout(r.Context(), middleware.SessionToken(r),
		orchestrators.AdminLogoutDeps{Sessions: s.stores.Sessions})
	if err != nil {
		internalError(w, err)
		return
	}
	if loggedIn {
		s.recordAudit(r, sess.Username, audit.ActionLogout, "", "")
	}
	middleware.ClearSessionCookie(w, s.opts.SecureCookies)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleDeleteSignup removes one signup. Unknown ids are ignored.
func (s *Server) handleDeleteSignup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("signup_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid signup id", http.StatusBadRequest)
		return
	}
	existing, lookupErr := s.stores.SignupStore.GetByID(r.Context(), id)
	removed, err := orchestrators.ExecuteDeleteSignup(r.Context(), id,
		orchestrators.DeleteSignupDeps{SignupStore: s.stores.SignupStore})
	if err != nil {
		internalError(w, err)
		return
	}
	if removed && lookupErr == nil {
		s.recordAudit(r, currentAdmin(r), audit.ActionDeleteSignup, strconv.FormatInt(id, 10),
			fmt.Sprintf("%s removed from %s", existing.Name, existing.Slot().Key()))
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleMoveSignup relocates one signup to another slot.
func (s *Server) handleMoveSignup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("signup_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid signup id", http.StatusBadRequest)
		return
	}
	hour, err := strconv.Atoi(r.FormValue("hour"))
	if err != nil {
		http.Error(w, "Invalid target slot", http.StatusBadRequest)
		return
	}

	moved, err := orchestrators.ExecuteMoveSignup(r.Context(), orchestrators.MoveSignupInput{
		ID:   id,
		Day:  r.FormValue("day"),
		Hour: hour,
	}, orchestrators.MoveSignupDeps{SignupStore: s.stores.SignupStore})
	switch {
	case err == nil:
		s.recordAudit(r, currentAdmin(r), audit.ActionMoveSignup, strconv.FormatInt(id, 10),
			fmt.Sprintf("%s moved to %s", moved.Name, moved.Slot().Key()))
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case errors.Is(err, slot.ErrInvalidSlot):
		http.Error(w, "Invalid target slot", http.StatusBadRequest)
	case errors.Is(err, slot.ErrSlotFull):
		http.Error(w, "Target slot is full", http.StatusBadRequest)
	case errors.Is(err, signup.ErrSignupNotFound):
		http.Error(w, "Signup not found", http.StatusNotFound)
	default:
		internalError(w, err)
	}
}

// handleExport downloads the versioned JSON snapshot.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := orchestrators.ExecuteExportSnapshot(r.Context(), orchestrators.ExportSnapshotDeps{
		SignupStore: s.stores.SignupStore,
		Now:         s.opts.Now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	body, err := doc.ToJSON()
	if err != nil {
		internalError(w, err)
		return
	}
	s.recordAudit(r, currentAdmin(r), audit.ActionExport, "", fmt.Sprintf("%d signups", len(doc.Signups)))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=frontporch-snapshot-%s.json", doc.ExportedAt.Format("20060102-150405")))
	w.Write(body)
}

// handleRosterPDF renders a printable roster of every booked slot.
func (s *Server) handleRosterPDF(w http.ResponseWriter, r *http.Request) {
	roster, err := projections.QueryGetRoster(r.Context(), projections.GetRosterDeps{SignupStore: s.stores.SignupStore})
	if err != nil {
		internalError(w, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Volunteer roster", true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Volunteer roster")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%d signups, generated %s", roster.Total, s.now().Format("Mon 2 Jan 2006 15:04")))
	pdf.Ln(10)

	if len(roster.Days) == 0 {
		pdf.SetFont("Arial", "I", 12)
		pdf.Cell(0, 8, "No signups yet.")
	}
	for _, day := range roster.Days {
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 9, fmt.Sprintf("%s (%d)", day.Day, day.Count))
		pdf.Ln(9)
		for _, sl := range day.Slots {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(28, 7, sl.Label, "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 7, tr(strings.Join(sl.Names, ", ")), "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		internalError(w, fmt.Errorf("render roster pdf: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=roster.pdf")
	buf.WriteTo(w)
}

// handlePosterQR renders a QR code pointing at the public signup page.
func (s *Server) handlePosterQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(s.publicURL(r), qrcode.Medium, 512)
	if err != nil {
		internalError(w, fmt.Errorf("encode qr: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// publicURL is the configured public address, or one derived from the request.
func (s *Server) publicURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || s.opts.SecureCookies {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

// handlePerf serves the request and query timings of the last hour.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.collector.Snapshot(time.Now().Add(-time.Hour), 10))
}

// recordAudit adds an entry to the activity log shown on the dashboard.
func (s *Server) recordAudit(r *http.Request, actor string, action audit.Action, resourceID, desc string) {
	event := audit.NewEvent(actor, action, s.now()).
		WithResource(resourceID).
		WithDescription(desc).
		WithRequest(middleware.ClientIP(r))
	orchestrators.RecordAudit(r.Context(), s.stores.AuditStore, event)
}

// currentAdmin is the username of the request's session.
func currentAdmin(r *http.Request) string {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess.Username
}
