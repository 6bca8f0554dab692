package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/gorilla/mux"
)

type registerRequest struct {
	ConsumerID string `json:"consumerId"`
	// LegacyConsumerID is the field name older assistant clients send.
	LegacyConsumerID string `json:"claudeCodeId"`
	SessionID        string `json:"sessionId"`
}

func (r registerRequest) consumer() string {
	if r.ConsumerID != "" {
		return r.ConsumerID
	}
	return r.LegacyConsumerID
}

type sessionIDResponse struct {
	Success   bool             `json:"success"`
	SessionID domain.SessionID `json:"sessionId"`
}

type linkRequest struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type sessionResponse struct {
	Session *domain.SessionSummary `json:"session"`
}

type sessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

type pollResponse struct {
	Annotations []domain.Annotation `json:"annotations"`
	Reason      domain.PollReason   `json:"reason"`
}

type annotationRequest struct {
	Note    string          `json:"note"`
	Element json.RawMessage `json:"element"`
}

type annotationResponse struct {
	Success      bool             `json:"success"`
	ID           string           `json:"id"`
	Delivered    bool             `json:"delivered"`
	SessionFound bool             `json:"sessionFound"`
	SessionID    domain.SessionID `json:"sessionId,omitempty"`
	Archived     bool             `json:"archived"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, healthResponse{Status: "ok", Sessions: s.relay.Count()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := s.relay.Register(r.Context(), req.consumer())
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, sessionIDResponse{Success: true, SessionID: id})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := s.relay.Create(r.Context(), req.consumer(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, sessionIDResponse{Success: true, SessionID: id})
}

func (s *Server) handleLinkURL(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := requiredSessionID(req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.relay.LinkURL(r.Context(), id, req.URL); err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleFindByURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, fmt.Errorf("%w: url query parameter is required", errInvalidRequest))
		return
	}

	summary, found, err := s.relay.FindByURL(r.Context(), url)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := sessionResponse{}
	if found {
		resp.Session = &summary
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.relay.Get(r.Context(), domain.SessionID(mux.Vars(r)["id"]))
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, sessionResponse{Session: &summary})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	id, err := requiredSessionID(query.Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	timeout, err := parsePollTimeout(query.Get("timeout"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.relay.Poll(r.Context(), id, timeout)
	if err != nil {
		if clientGone(r, err) {
			s.log.V(1).Info("poll abandoned by client", "session", id)
			return
		}
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, pollResponse{Annotations: result.Annotations, Reason: result.Reason})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	element, err := parseElement(req.Element)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.relay.Submit(r.Context(), req.Note, element)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, annotationResponse{
		Success:      true,
		ID:           result.Annotation.ID,
		Delivered:    result.Delivered,
		SessionFound: result.Delivered,
		SessionID:    result.SessionID,
		Archived:     result.Archived,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.relay.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	archiveQuery := ports.ArchiveQuery{SessionID: domain.SessionID(strings.TrimSpace(query.Get("sessionId")))}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", errInvalidRequest))
			return
		}
		archiveQuery.Limit = limit
	}

	annotations, err := s.relay.Archived(r.Context(), archiveQuery)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, annotations)
}

func requiredSessionID(raw string) (domain.SessionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: sessionId is required", errInvalidRequest)
	}
	return domain.SessionID(trimmed), nil
}

// parsePollTimeout accepts a Go duration ("45s") or a bare number of
// milliseconds. Empty means the relay default.
func parsePollTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("%w: timeout must not be negative", errInvalidRequest)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	timeout, err := time.ParseDuration(raw)
	if err != nil || timeout < 0 {
		return 0, fmt.Errorf("%w: timeout %q is neither a duration nor milliseconds", errInvalidRequest, raw)
	}
	return timeout, nil
}

func parseElement(raw json.RawMessage) (domain.Element, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.Element{}, fmt.Errorf("%w: element is required", domain.ErrMalformedAnnotation)
	}

	var element domain.Element
	if err := json.Unmarshal(raw, &element); err != nil {
		if errors.Is(err, domain.ErrMalformedAnnotation) {
			return domain.Element{}, err
		}
		return domain.Element{}, fmt.Errorf("%w: %v", domain.ErrMalformedAnnotation, err)
	}
	return element, nil
}
