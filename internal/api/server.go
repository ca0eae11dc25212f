package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/kitchenhire/booking-engine/internal/availability"
	"github.com/kitchenhire/booking-engine/internal/caldate"
	"github.com/kitchenhire/booking-engine/internal/optimistic"
	"github.com/kitchenhire/booking-engine/internal/pricing"
	"github.com/kitchenhire/booking-engine/internal/remote"
	"github.com/kitchenhire/booking-engine/internal/rollover"
	"github.com/kitchenhire/booking-engine/internal/security"
	"github.com/kitchenhire/booking-engine/internal/task"
)

// Projects is the full-replace project list collaborator.
type Projects interface {
	GetProjects(ctx context.Context) ([]string, error)
	PutProjects(ctx context.Context, projects []string) error
}

type Server struct {
	availability *availability.Store
	pricer       *pricing.Engine
	tasks        *optimistic.Engine[task.Record]
	bookings     *optimistic.Engine[task.Booking]
	projects     Projects
	rollover     *rollover.Scheduler
	auth         security.BearerAuth
	log          *slog.Logger
	httpSrv      *http.Server
}

type Options struct {
	Availability *availability.Store
	Pricer       *pricing.Engine
	Tasks        *optimistic.Engine[task.Record]
	Bookings     *optimistic.Engine[task.Booking]
	Projects     Projects
	Rollover     *rollover.Scheduler
	Auth         security.BearerAuth
	Logger       *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		availability: opts.Availability,
		pricer:       opts.Pricer,
		tasks:        opts.Tasks,
		bookings:     opts.Bookings,
		projects:     opts.Projects,
		rollover:     opts.Rollover,
		auth:         opts.Auth,
		log:          logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /v1/availability", s.handleAvailability)
	mux.HandleFunc("POST /v1/availability/ranges", s.handleAddRange)
	mux.HandleFunc("DELETE /v1/availability/ranges/{index}", s.handleRemoveRange)
	mux.HandleFunc("GET /v1/availability.ics", s.handleAvailabilityICS)

	mux.HandleFunc("GET /v1/quote", s.handleQuote)

	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	mux.HandleFunc("POST /v1/tasks", s.handleCreateTask)
	mux.HandleFunc("PUT /v1/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleDeleteTask)

	mux.HandleFunc("GET /v1/bookings", s.handleListBookings)
	mux.HandleFunc("POST /v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("PUT /v1/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /v1/bookings/{id}", s.handleDeleteBooking)

	mux.HandleFunc("GET /v1/projects", s.handleGetProjects)
	mux.HandleFunc("PUT /v1/projects", s.handlePutProjects)

	mux.HandleFunc("POST /v1/rollover", s.handleRollover)

	s.httpSrv = &http.Server{Handler: s.wrapAuth(mux), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) ServeTCP(ctx context.Context, bind string) error {
	if bind == "" {
		return errors.New("bind required")
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	go s.shutdownOnContext(ctx)
	return s.httpSrv.Serve(ln)
}

func (s *Server) ServeUnix(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("socket path required")
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return err
	}
	go s.shutdownOnContext(ctx)
	return s.httpSrv.Serve(ln)
}

func (s *Server) wrapAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.auth.Authorize(r) {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) shutdownOnContext(ctx context.Context) {
	<-ctx.Done()
	timeout, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(timeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ranges := s.availability.Ranges()
	if ranges == nil {
		ranges = []caldate.Interval{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unavailable": ranges})
}

func (s *Server) handleAddRange(w http.ResponseWriter, r *http.Request) {
	var iv caldate.Interval
	if err := json.NewDecoder(r.Body).Decode(&iv); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.availability.AddRange(iv.Start, iv.End); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.availability.Persist(); err != nil {
		s.log.Error("persist availability", "err", err)
		writeErr(w, http.StatusInternalServerError, "persist failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"unavailable": s.availability.Ranges()})
}

func (s *Server) handleRemoveRange(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid index")
		return
	}
	// Out-of-bounds removal is a silent no-op.
	s.availability.RemoveRange(index)
	if err := s.availability.Persist(); err != nil {
		s.log.Error("persist availability", "err", err)
		writeErr(w, http.StatusInternalServerError, "persist failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailabilityICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(s.availability.ICS("Kitchen Hire Availability")))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	quote, err := s.pricer.Quote(days, r.URL.Query().Get("postcode"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Items())
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var rec task.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if rec.Title == "" {
		writeErr(w, http.StatusBadRequest, "title is required")
		return
	}
	if rec.ID == "" {
		rec.ID = task.NewID(nil)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.tasks.Create(r.Context(), rec); err != nil {
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	updated, err := s.tasks.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bookings.Items())
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var b task.Booking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if b.Name == "" || len(b.Dates) == 0 {
		writeErr(w, http.StatusBadRequest, "name and dates are required")
		return
	}
	if b.Status == "" {
		b.Status = task.StatusPending
	}
	if !b.Status.Valid() {
		writeErr(w, http.StatusBadRequest, "invalid status")
		return
	}
	if b.ID == "" {
		b.ID = task.NewID(nil)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if err := s.bookings.Create(r.Context(), b); err != nil {
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	if status, present := patch["status"]; present {
		str, _ := status.(string)
		if !task.BookingStatus(str).Valid() {
			writeErr(w, http.StatusBadRequest, "invalid status")
			return
		}
	}
	updated, err := s.bookings.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.bookings.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.GetProjects(r.Context())
	if err != nil {
		writeMutationErr(w, err)
		return
	}
	if projects == nil {
		projects = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"projects": projects})
}

func (s *Server) handlePutProjects(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Projects []string `json:"projects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.projects.PutProjects(r.Context(), payload.Projects); err != nil {
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"projects": payload.Projects})
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rollover.Run(r.Context()))
}

func decodePatch(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return nil, false
	}
	return patch, true
}

// writeMutationErr maps sync-engine failures onto the admin surface:
// unknown ids are 404, anything the store refused or that never reached
// the store is 502 with the store's message when it sent one.
func writeMutationErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, optimistic.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, remote.ErrRejected), errors.Is(err, remote.ErrUnavailable):
		writeErr(w, http.StatusBadGateway, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
