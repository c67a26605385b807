package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"platter/internal/api"
	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/services"
)

// apiServer serves the JSON control surface the CLI and review tooling talk
// to. Handlers stay thin: they parse the request, call the daemon
// operation, and map service error markers to HTTP status codes.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.WithComponent(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/jobs", srv.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleJob)
	mux.HandleFunc("POST /api/jobs/{id}/approve", srv.handleApprove)
	mux.HandleFunc("POST /api/jobs/{id}/identify", srv.handleIdentify)
	mux.HandleFunc("POST /api/jobs/{id}/pre-identify", srv.handlePreIdentify)
	mux.HandleFunc("POST /api/jobs/{id}/skip", srv.handleSkip)
	mux.HandleFunc("POST /api/jobs/{id}/archive", srv.handleArchive)
	mux.HandleFunc("GET /api/oversight/check", srv.handleOversightCheck)
	mux.HandleFunc("POST /api/oversight/fix-encoding", srv.handleFixEncoding)
	mux.HandleFunc("GET /api/active-mode", srv.handleActiveMode)
	mux.HandleFunc("POST /api/active-mode/toggle", srv.handleToggleActiveMode)
	mux.HandleFunc("GET /api/wanted", srv.handleWantedList)
	mux.HandleFunc("POST /api/wanted", srv.handleWantedAdd)
	mux.HandleFunc("DELETE /api/wanted/{id}", srv.handleWantedRemove)
	mux.HandleFunc("GET /api/collection", srv.handleCollection)
	mux.HandleFunc("DELETE /api/collection/{id}", srv.handleCollectionRemove)
	mux.HandleFunc("GET /api/catalog/search", srv.handleCatalogSearch)
	mux.HandleFunc("POST /api/notifications/test", srv.handleNotificationTest)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.shutdown()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// boundAddr reports the listener address, empty before start.
func (s *apiServer) boundAddr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:      status.Running,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.WorkflowViewFrom(status.Workflow),
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	includeArchived := boolParam(query.Get("include_archived"))

	jobs, err := s.daemon.RecentJobs(r.Context(), limit, includeArchived)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.JobViewsFrom(jobs)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.Job(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.JobViewFrom(job)})
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.Approve(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MutationResponseFrom(job))
}

func (s *apiServer) handleIdentify(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.IdentifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	job, err := s.daemon.Identify(r.Context(), id, req.Title, req.Year, req.CatalogID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MutationResponseFrom(job))
}

func (s *apiServer) handlePreIdentify(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.IdentifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	job, err := s.daemon.PreIdentify(r.Context(), id, req.Title, req.Year, req.CatalogID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MutationResponseFrom(job))
}

func (s *apiServer) handleSkip(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.Skip(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MutationResponseFrom(job))
}

func (s *apiServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.Archive(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MutationResponseFrom(job))
}

func (s *apiServer) handleOversightCheck(w http.ResponseWriter, r *http.Request) {
	issues, err := s.daemon.OversightCheck(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if issues == nil {
		issues = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.OversightCheckResponse{Issues: issues, Count: len(issues)})
}

func (s *apiServer) handleFixEncoding(w http.ResponseWriter, r *http.Request) {
	fixed, err := s.daemon.FixEncoding(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FixEncodingResponse{Fixed: fixed})
}

func (s *apiServer) handleActiveMode(w http.ResponseWriter, r *http.Request) {
	active, err := s.daemon.ActiveMode(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActiveModeResponse{Active: active})
}

func (s *apiServer) handleToggleActiveMode(w http.ResponseWriter, r *http.Request) {
	active, err := s.daemon.ToggleActiveMode(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActiveModeResponse{Active: active})
}

func (s *apiServer) handleWantedList(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.Wanted(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WantedResponse{Items: api.WantedViewsFrom(items)})
}

func (s *apiServer) handleWantedAdd(w http.ResponseWriter, r *http.Request) {
	var req api.WantedAddRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	item, err := s.daemon.AddWanted(r.Context(), req.Title, req.Year, req.ContentType, req.Notes)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WantedAddResponse{Success: true, Item: api.WantedViewFrom(item)})
}

func (s *apiServer) handleWantedRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.RemoveWanted(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WantedRemoveResponse{Success: true, WantedID: id})
}

func (s *apiServer) handleCollection(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.Collection(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CollectionResponse{Items: api.CollectionViewsFrom(items)})
}

func (s *apiServer) handleCollectionRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.RemoveCollection(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CollectionRemoveResponse{Success: true, CollectionID: id})
}

func (s *apiServer) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	year, _ := strconv.Atoi(query.Get("year"))

	results, err := s.daemon.SearchCatalog(r.Context(), query.Get("query"), year)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CatalogSearchResponse{Results: api.CatalogResultsFrom(results)})
}

func (s *apiServer) handleNotificationTest(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.TestNotification(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationTestResponse{Success: true})
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func (s *apiServer) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("control surface operation failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, api.ErrorResponse{Detail: detail})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// statusForError maps service error markers onto HTTP status codes: missing
// rows 404, guard and validation rejections 400, unconfigured integrations
// 503, everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func boolParam(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
