package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hookrelay/internal/domain"
	"hookrelay/internal/store"
)

type serviceRequest struct {
	Name        string   `json:"name"`
	Endpoint    string   `json:"endpoint"`
	ContentType string   `json:"content_type"`
	Status      *bool    `json:"status"`
	Token       string   `json:"token"`
	Events      []string `json:"events"`
}

type serviceResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Endpoint    string    `json:"endpoint"`
	ContentType string    `json:"content_type"`
	Status      bool      `json:"status"`
	Token       string    `json:"token,omitempty"`
	Events      []string  `json:"events"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toServiceResponse(svc *domain.Service) serviceResponse {
	events := svc.Events
	if events == nil {
		events = []string{}
	}
	return serviceResponse{
		ID:          svc.ID,
		Name:        svc.Name,
		Endpoint:    svc.Endpoint,
		ContentType: string(svc.ContentType),
		Status:      svc.Status,
		Token:       svc.Token,
		Events:      events,
		CreatedAt:   svc.CreatedAt,
		UpdatedAt:   svc.UpdatedAt,
	}
}

func (req *serviceRequest) toService() (*domain.Service, error) {
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	if req.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if u, err := url.ParseRequestURI(req.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("endpoint must be a valid http(s) url")
	}

	contentType := domain.ContentType(req.ContentType)
	if req.ContentType == "" {
		contentType = domain.ContentTypeJSON
	}
	if !contentType.Valid() {
		return nil, errors.New("content_type must be application/json or application/x-www-form-urlencoded")
	}

	status := true
	if req.Status != nil {
		status = *req.Status
	}

	svc := &domain.Service{
		Name:        req.Name,
		Endpoint:    req.Endpoint,
		ContentType: contentType,
		Status:      status,
		Token:       req.Token,
		Events:      req.Events,
	}
	svc.NormalizeEvents()
	return svc, nil
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, err := req.toService()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.services.Create(r.Context(), svc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create service")
		return
	}

	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Name:        r.URL.Query().Get("name"),
		ContentType: domain.ContentType(r.URL.Query().Get("content_type")),
		Sort:        r.URL.Query().Get("sort"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		opts.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	services, err := s.services.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list services")
		return
	}

	out := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, toServiceResponse(svc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	svc, err := s.services.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get service")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, err := req.toService()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc.ID = id

	if err := s.services.Update(r.Context(), svc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update service")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	if err := s.services.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete service")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
