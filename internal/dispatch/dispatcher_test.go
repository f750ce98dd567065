package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hookrelay/internal/domain"
	"hookrelay/internal/events"
	"hookrelay/internal/httpclient"
	"hookrelay/internal/store"
)

// stubResolver implements Resolver with a fixed answer.
type stubResolver struct {
	services []*domain.Service
	err      error
}

func (r *stubResolver) Resolve(ctx context.Context, event string) ([]*domain.Service, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.services, nil
}

// mockOutcomeStore implements store.OutcomeStore for testing
type mockOutcomeStore struct {
	outcomes []*domain.DeliveryOutcome
	mu       sync.Mutex
}

func (s *mockOutcomeStore) Create(ctx context.Context, outcome *domain.DeliveryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

func (s *mockOutcomeStore) GetAll() []*domain.DeliveryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.DeliveryOutcome, len(s.outcomes))
	copy(result, s.outcomes)
	return result
}

func newTestDispatcher(services ...*domain.Service) *Dispatcher {
	return NewDispatcher(&stubResolver{services: services}, httpclient.New(5*time.Second))
}

func TestDispatchSingleService(t *testing.T) {
	var (
		gotBody        atomic.Value
		gotContentType atomic.Value
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		gotContentType.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          1,
		Name:        "S1",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
		Token:       "abc",
		Events:      []string{"course_created"},
	}

	occ := &domain.EventOccurrence{
		ID:      "occ-1",
		Name:    "course_created",
		Payload: map[string]any{"courseid": 42},
	}

	outcomes, err := newTestDispatcher(svc).Dispatch(context.Background(), occ)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != domain.DeliveryStatusSuccess {
		t.Errorf("expected SUCCESS, got %s (%s)", outcomes[0].Status, outcomes[0].Error)
	}
	if outcomes[0].ServiceID != 1 {
		t.Errorf("expected outcome for service 1, got %d", outcomes[0].ServiceID)
	}
	if outcomes[0].StatusLine == "" {
		t.Error("expected status line to be recorded")
	}

	if gotContentType.Load() != "application/json" {
		t.Errorf("expected Content-Type application/json, got %v", gotContentType.Load())
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(gotBody.Load().(string)), &body); err != nil {
		t.Fatalf("request body is not valid json: %v", err)
	}
	if body["courseid"] != float64(42) {
		t.Errorf("expected courseid 42, got %v", body["courseid"])
	}
	if body["token"] != "abc" {
		t.Errorf("expected token abc, got %v", body["token"])
	}
}

func TestDispatchTokenOverridesPayloadToken(t *testing.T) {
	var gotBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          1,
		Name:        "S1",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
		Token:       "service-token",
	}

	occ := &domain.EventOccurrence{
		ID:      "occ-1",
		Name:    "user_loggedin",
		Payload: map[string]any{"token": "payload-token", "userid": 7},
	}

	if _, err := newTestDispatcher(svc).Dispatch(context.Background(), occ); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(gotBody.Load().(string)), &body); err != nil {
		t.Fatal(err)
	}
	if body["token"] != "service-token" {
		t.Errorf("expected service token to win, got %v", body["token"])
	}
	if occ.Payload["token"] != "payload-token" {
		t.Error("dispatch must not mutate the occurrence payload")
	}
}

func TestDispatchFormEncoding(t *testing.T) {
	var (
		gotBody        atomic.Value
		gotContentType atomic.Value
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		gotContentType.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          1,
		Name:        "S1",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeForm,
		Status:      true,
	}

	occ := &domain.EventOccurrence{
		ID:      "occ-1",
		Name:    "course_created",
		Payload: map[string]any{"x": 1, "y": "z"},
	}

	if _, err := newTestDispatcher(svc).Dispatch(context.Background(), occ); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if gotContentType.Load() != "application/x-www-form-urlencoded" {
		t.Errorf("expected form content type, got %v", gotContentType.Load())
	}

	values, err := url.ParseQuery(gotBody.Load().(string))
	if err != nil {
		t.Fatalf("request body is not valid form data: %v", err)
	}
	if values.Get("x") != "1" {
		t.Errorf("expected x=1, got %q", values.Get("x"))
	}
	if values.Get("y") != "z" {
		t.Errorf("expected y=z, got %q", values.Get("y"))
	}
}

func TestDispatchSkipsInactiveService(t *testing.T) {
	var postCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postCount.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          1,
		Name:        "S1",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      false,
		Events:      []string{"course_created"},
	}

	occ := &domain.EventOccurrence{ID: "occ-1", Name: "course_created", Payload: map[string]any{}}

	outcomes, err := newTestDispatcher(svc).Dispatch(context.Background(), occ)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected 0 outcomes for inactive service, got %d", len(outcomes))
	}
	if postCount.Load() != 0 {
		t.Errorf("expected 0 POSTs, got %d", postCount.Load())
	}
}

func TestDispatchIsolatesRecipientFailures(t *testing.T) {
	var postCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postCount.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	unreachable := &domain.Service{
		ID:          1,
		Name:        "unreachable",
		Endpoint:    "http://127.0.0.1:1/hook",
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}
	reachable := &domain.Service{
		ID:          2,
		Name:        "reachable",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}

	occ := &domain.EventOccurrence{ID: "occ-1", Name: "user_loggedin", Payload: map[string]any{}}

	outcomes, err := newTestDispatcher(unreachable, reachable).Dispatch(context.Background(), occ)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if postCount.Load() != 1 {
		t.Errorf("expected 1 POST to the reachable endpoint, got %d", postCount.Load())
	}

	byID := make(map[int64]domain.DeliveryOutcome, 2)
	for _, o := range outcomes {
		byID[o.ServiceID] = o
	}
	if byID[1].Status != domain.DeliveryStatusFailed {
		t.Errorf("expected service 1 FAILED, got %s", byID[1].Status)
	}
	if byID[1].Error == "" {
		t.Error("expected a failure classification for service 1")
	}
	if byID[2].Status != domain.DeliveryStatusSuccess {
		t.Errorf("expected service 2 SUCCESS, got %s", byID[2].Status)
	}
	if byID[2].StatusLine == "" {
		t.Error("expected a status line for service 2")
	}
}

func TestDispatchInvalidEndpointFailsOnlyThatRecipient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	malformed := &domain.Service{
		ID:          1,
		Name:        "bad",
		Endpoint:    "not a url",
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}
	good := &domain.Service{
		ID:          2,
		Name:        "good",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}

	occ := &domain.EventOccurrence{ID: "occ-1", Name: "course_created", Payload: map[string]any{}}

	outcomes, err := newTestDispatcher(malformed, good).Dispatch(context.Background(), occ)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	byID := make(map[int64]domain.DeliveryOutcome, 2)
	for _, o := range outcomes {
		byID[o.ServiceID] = o
	}
	if byID[1].Status != domain.DeliveryStatusFailed {
		t.Errorf("expected malformed endpoint to fail, got %s", byID[1].Status)
	}
	if byID[2].Status != domain.DeliveryStatusSuccess {
		t.Errorf("expected good endpoint to succeed, got %s", byID[2].Status)
	}
}

func TestDispatchRecordsOutcomesAndAudit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          7,
		Name:        "audited",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}

	outcomeStore := &mockOutcomeStore{}
	hub := events.NewHub()
	sub := &events.Subscriber{ID: "test-sub", Events: make(chan events.DeliveryEvent, 10)}
	hub.Subscribe(sub)

	d := NewDispatcher(&stubResolver{services: []*domain.Service{svc}}, httpclient.New(5*time.Second)).
		WithOutcomeStore(outcomeStore).
		WithAudit(hub)

	occ := &domain.EventOccurrence{ID: "occ-7", Name: "course_created", Payload: map[string]any{}}
	if _, err := d.Dispatch(context.Background(), occ); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	recorded := outcomeStore.GetAll()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 persisted outcome, got %d", len(recorded))
	}
	if recorded[0].OccurrenceID != "occ-7" {
		t.Errorf("expected occurrence occ-7, got %s", recorded[0].OccurrenceID)
	}

	select {
	case event := <-sub.Events:
		if event.ServiceID != 7 {
			t.Errorf("expected audit event for service 7, got %d", event.ServiceID)
		}
		if event.ServiceName != "audited" {
			t.Errorf("expected service name audited, got %s", event.ServiceName)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for audit event")
	}
}

func TestDispatchNon2xxIsFailedButKeepsStatusLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := &domain.Service{
		ID:          1,
		Name:        "S1",
		Endpoint:    server.URL,
		ContentType: domain.ContentTypeJSON,
		Status:      true,
	}

	occ := &domain.EventOccurrence{ID: "occ-1", Name: "course_created", Payload: map[string]any{}}

	outcomes, err := newTestDispatcher(svc).Dispatch(context.Background(), occ)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if outcomes[0].Status != domain.DeliveryStatusFailed {
		t.Errorf("expected FAILED for 502, got %s", outcomes[0].Status)
	}
	if outcomes[0].StatusLine == "" {
		t.Error("expected the 502 status line to be recorded")
	}
}

func TestDispatchPropagatesResolverFailure(t *testing.T) {
	d := NewDispatcher(&stubResolver{err: store.ErrUnavailable}, httpclient.New(5*time.Second))

	occ := &domain.EventOccurrence{ID: "occ-1", Name: "course_created", Payload: map[string]any{}}

	if _, err := d.Dispatch(context.Background(), occ); err == nil {
		t.Fatal("expected resolver failure to propagate")
	}
}
