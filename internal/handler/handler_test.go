package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"github.com/sagarsharma2004/event-admission/internal/model"
	"github.com/sagarsharma2004/event-admission/internal/repository/memory"
	"github.com/sagarsharma2004/event-admission/internal/service"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (http.Handler, *service.EventService) {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)
	svc := service.NewEventService(memory.NewStore(), logger)
	return NewRouter(NewEventHandler(svc), testSecret, logger), svc
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func request(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createPublished(t *testing.T, svc *service.EventService, capacity int) string {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:         "launch party",
		MaxAttendees: capacity,
		Status:       model.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event.ID
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateEvent(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodPost, "/events", "organizer", model.CreateEventRequest{
		Name:         "launch party",
		MaxAttendees: 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var event model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.ID == "" || event.Status != model.StatusDraft {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestCreateEventValidationError(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodPost, "/events", "organizer", model.CreateEventRequest{
		Name:         "",
		MaxAttendees: 10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateEventRequiresAuth(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodPost, "/events", "", model.CreateEventRequest{
		Name:         "launch party",
		MaxAttendees: 10,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	router, svc := newTestServer(t)
	id := createPublished(t, svc, 5)

	claims := jwt.MapClaims{"sub": "u1"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/events/"+id+"/register", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterFlow(t *testing.T) {
	router, svc := newTestServer(t)
	id := createPublished(t, svc, 2)

	rec := request(t, router, http.MethodPost, "/events/"+id+"/register", "u1", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var resp model.RegistrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Attendees) != 1 || resp.Attendees[0].UserID != "u1" {
		t.Fatalf("unexpected roster: %+v", resp.Attendees)
	}
	if resp.AvailableSpots != 1 {
		t.Fatalf("available_spots = %d, want 1", resp.AvailableSpots)
	}

	// Duplicate registration conflicts.
	rec = request(t, router, http.MethodPost, "/events/"+id+"/register", "u1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}

	// Unregister restores the seat.
	rec = request(t, router, http.MethodDelete, "/events/"+id+"/register", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unregister status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var unreg model.UnregistrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &unreg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(unreg.Attendees) != 0 {
		t.Fatalf("roster not empty after unregister: %+v", unreg.Attendees)
	}

	// A second unregister conflicts.
	rec = request(t, router, http.MethodDelete, "/events/"+id+"/register", "u1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat unregister status = %d, want 409", rec.Code)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodPost, "/events/no-such-event/register", "u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRegisterDraftEventConflicts(t *testing.T) {
	router, svc := newTestServer(t)
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:         "hidden",
		MaxAttendees: 10,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	rec := request(t, router, http.MethodPost, "/events/"+event.ID+"/register", "u1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestRegisterFullEventConflicts(t *testing.T) {
	router, svc := newTestServer(t)
	id := createPublished(t, svc, 1)

	if rec := request(t, router, http.MethodPost, "/events/"+id+"/register", "u1", nil); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	rec := request(t, router, http.MethodPost, "/events/"+id+"/register", "u2", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetEventSnapshot(t *testing.T) {
	router, svc := newTestServer(t)
	id := createPublished(t, svc, 2)
	if _, err := svc.Register(context.Background(), id, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec := request(t, router, http.MethodGet, "/events/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap model.EventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.AvailableSpots != 1 || snap.IsFull {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Attendees) != 1 || snap.Attendees[0].UserID != "u1" {
		t.Fatalf("unexpected roster: %+v", snap.Attendees)
	}
}

func TestListEventsEmptyArray(t *testing.T) {
	router, _ := newTestServer(t)
	rec := request(t, router, http.MethodGet, "/events", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("body = %s, want []", body)
	}
}

func TestTransitionStatus(t *testing.T) {
	router, svc := newTestServer(t)
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:         "upcoming",
		MaxAttendees: 10,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	rec := request(t, router, http.MethodPost, "/events/"+event.ID+"/status", "organizer",
		model.TransitionRequest{Status: model.StatusPublished})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	// draft is unreachable from published.
	rec = request(t, router, http.MethodPost, "/events/"+event.ID+"/status", "organizer",
		model.TransitionRequest{Status: model.StatusDraft})
	if rec.Code != http.StatusConflict {
		t.Fatalf("invalid transition status = %d, want 409", rec.Code)
	}
}
