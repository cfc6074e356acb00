package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/booking"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/catalog"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/config"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/session"
)

type app struct {
	e        *echo.Echo
	users    *repository.UserRepo
	events   *repository.EventRepo
	accounts *identity.MemoryProvider
	changes  []booking.Change
	mu       sync.Mutex
}

func newApp(t *testing.T) *app {
	t.Helper()
	store := docstore.NewMemoryStore()
	users := repository.NewUserRepo(store)
	events := repository.NewEventRepo(store)
	accounts := identity.NewMemoryProvider(users, bcrypt.MinCost)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, nil)
	bookings := booking.NewService(store, users, events, docstore.RetryPolicy{MaxAttempts: 10, BaseDelay: time.Millisecond})
	manager := catalog.NewManager(store, events, docstore.RetryPolicy{})
	cfg := config.Config{JWTSecret: "secret", AccessTTLMin: 15}

	a := &app{e: echo.New(), users: users, events: events, accounts: accounts}
	bookings.OnChange(func(_ context.Context, c booking.Change) {
		a.mu.Lock()
		a.changes = append(a.changes, c)
		a.mu.Unlock()
	})

	g := Guards{JWTSecret: cfg.JWTSecret, Sessions: sessions, Users: users}
	a.e.Use(middleware.CorrelationID())
	RegisterRoutes(a.e, store)
	RegisterAuth(a.e, handler.NewAuthHandler(cfg, accounts, users, sessions), g)
	RegisterPublic(a.e, handler.NewEventsHandler(manager, users), g)
	RegisterBooking(a.e, handler.NewBookingHandler(bookings), g)
	RegisterAdmin(a.e, handler.NewAdminEventsHandler(manager), handler.NewAdminAccountsHandler(accounts), g)
	return a
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// signUpAndIn registers an account and returns its uid and access token.
func (a *app) signUpAndIn(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "confirm_password": "secret1", "display_name": "Tester",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	return a.signIn(t, email)
}

// signIn opens a new session for an existing account.
func (a *app) signIn(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": email, "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		User   session.Record `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}](t, rec)
	return resp.User.UID, resp.Access.Token
}

func (a *app) seedEvent(t *testing.T, name string, places int, lat, lng *float64) string {
	t.Helper()
	id, err := a.events.Create(context.Background(), model.EventFields{
		Name: name, Type: "music", Venue: "Hall", Capacity: places, Latitude: lat, Longitude: lng,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	if rec := a.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz: %d", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"mismatch", map[string]string{"email": "x@y.io", "password": "secret1", "confirm_password": "other1"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope", "password": "secret1", "confirm_password": "secret1"}, http.StatusBadRequest},
		{"weak password", map[string]string{"email": "x@y.io", "password": "abc", "confirm_password": "abc"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := a.do(t, http.MethodPost, "/v1/auth/signup", "", tc.body); rec.Code != tc.want {
				t.Errorf("expected %d, got %d %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	uid, token := a.signUpAndIn(t, "ann@example.com")
	dup := a.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "ann@example.com", "password": "secret1", "confirm_password": "secret1",
	})
	if dup.Code != http.StatusConflict {
		t.Errorf("duplicate signup: expected 409, got %d", dup.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ann@example.com", "password": "wrong11"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}

	rec := a.do(t, http.MethodGet, "/v1/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	me := decode[struct {
		User session.Record `json:"user"`
	}](t, rec)
	if me.User.UID != uid || !me.User.IsLoggedIn || me.User.IsAdmin {
		t.Errorf("unexpected record: %+v", me.User)
	}

	if rec := a.do(t, http.MethodPost, "/v1/auth/signout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("signout: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodGet, "/v1/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after signout: expected 401, got %d", rec.Code)
	}

	if err := a.accounts.SetDisabled(context.Background(), uid, true); err != nil {
		t.Fatalf("SetDisabled: %v", err)
	}
	if rec := a.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ann@example.com", "password": "secret1"}); rec.Code != http.StatusForbidden {
		t.Errorf("disabled: expected 403, got %d", rec.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newApp(t)
	_, token := a.signUpAndIn(t, "bea@example.com")
	id := a.seedEvent(t, "Gig", 1, nil, nil)

	if rec := a.do(t, http.MethodPost, "/v1/events/"+id+"/book", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous book: expected 401, got %d", rec.Code)
	}
	rec := a.do(t, http.MethodPost, "/v1/events/"+id+"/book", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[struct {
		Event model.Event `json:"event"`
	}](t, rec); got.Event.Participants != 0 {
		t.Errorf("expected 0 places left, got %d", got.Event.Participants)
	}
	if rec := a.do(t, http.MethodPost, "/v1/events/"+id+"/book", token, nil); rec.Code != http.StatusConflict {
		t.Errorf("rebook: expected 409, got %d", rec.Code)
	}

	_, other := a.signUpAndIn(t, "cy@example.com")
	rec = a.do(t, http.MethodPost, "/v1/events/"+id+"/book", other, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("full event: expected 409, got %d", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["error"]; msg != booking.ErrCapacityExhausted.Error() {
		t.Errorf("unexpected message %q", msg)
	}
	if rec := a.do(t, http.MethodDelete, "/v1/events/"+id+"/book", other, nil); rec.Code != http.StatusConflict {
		t.Errorf("cancel without booking: expected 409, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/events/missing/book", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing event: expected 404, got %d", rec.Code)
	}

	type bookedResp struct {
		EventID string `json:"event_id"`
		Booked  bool   `json:"booked"`
	}
	if b := decode[bookedResp](t, a.do(t, http.MethodGet, "/v1/events/"+id+"/booked", token, nil)); !b.Booked || b.EventID != id {
		t.Errorf("booked: %+v", b)
	}
	if b := decode[bookedResp](t, a.do(t, http.MethodGet, "/v1/events/"+id+"/booked", other, nil)); b.Booked {
		t.Errorf("other user booked: %+v", b)
	}
	if rec := a.do(t, http.MethodGet, "/v1/events/"+id+"/booked", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous booked: expected 401, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/v1/my-events", token, nil)
	if mine := decode[[]model.Event](t, rec); len(mine) != 1 || mine[0].ID != id {
		t.Errorf("my-events: %+v", mine)
	}

	if rec := a.do(t, http.MethodDelete, "/v1/events/"+id+"/book", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(t, http.MethodGet, "/v1/events/"+id, "", nil)
	if e := decode[model.Event](t, rec); e.Participants != 1 {
		t.Errorf("expected place returned, got %d", e.Participants)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.changes) != 2 || a.changes[0].Kind != booking.KindBooked || a.changes[1].Kind != booking.KindCancelled {
		t.Errorf("unexpected change hooks: %+v", a.changes)
	}
}

func TestPublicCatalog(t *testing.T) {
	a := newApp(t)
	lat, lng := 50.9, -1.4
	mapped := a.seedEvent(t, "Mapped", 3, &lat, &lng)
	a.seedEvent(t, "Unmapped", 3, nil, nil)

	if events := decode[[]model.Event](t, a.do(t, http.MethodGet, "/v1/events", "", nil)); len(events) != 2 {
		t.Errorf("list: expected 2 events, got %d", len(events))
	}
	if events := decode[[]model.Event](t, a.do(t, http.MethodGet, "/v1/events/recent?limit=1", "", nil)); len(events) != 1 || events[0].Name != "Unmapped" {
		t.Errorf("recent: %+v", events)
	}
	if rec := a.do(t, http.MethodGet, "/v1/events/recent?limit=zero", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", rec.Code)
	}
	if events := decode[[]model.Event](t, a.do(t, http.MethodGet, "/v1/events/type/music", "", nil)); len(events) != 2 {
		t.Errorf("by type: expected 2, got %d", len(events))
	}
	if rec := a.do(t, http.MethodGet, "/v1/events/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing event: expected 404, got %d", rec.Code)
	}

	type marker struct {
		ID      string `json:"id"`
		Booked  bool   `json:"booked"`
		CanBook bool   `json:"can_book"`
	}
	markers := decode[[]marker](t, a.do(t, http.MethodGet, "/v1/map/markers", "", nil))
	if len(markers) != 1 || markers[0].ID != mapped || markers[0].CanBook {
		t.Errorf("guest markers: %+v", markers)
	}
	if m := decode[[]marker](t, a.do(t, http.MethodGet, "/v1/map/markers?q=sport", "", nil)); len(m) != 0 {
		t.Errorf("filtered markers: %+v", m)
	}

	_, token := a.signUpAndIn(t, "dee@example.com")
	if rec := a.do(t, http.MethodPost, "/v1/events/"+mapped+"/book", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("book: %d", rec.Code)
	}
	markers = decode[[]marker](t, a.do(t, http.MethodGet, "/v1/map/markers?q=MUS", token, nil))
	if len(markers) != 1 || !markers[0].Booked || markers[0].CanBook {
		t.Errorf("signed-in markers: %+v", markers)
	}
}

func TestAdminEvents(t *testing.T) {
	a := newApp(t)
	uid, userTok := a.signUpAndIn(t, "eve@example.com")
	if rec := a.do(t, http.MethodGet, "/v1/admin/events", userTok, nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", rec.Code)
	}
	if err := a.users.SetAdmin(context.Background(), uid, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	// the old token still carries the user role
	if rec := a.do(t, http.MethodGet, "/v1/admin/events", userTok, nil); rec.Code != http.StatusForbidden {
		t.Errorf("user-role token: expected 403, got %d", rec.Code)
	}
	_, adminTok := a.signIn(t, "eve@example.com")

	rec := a.do(t, http.MethodPost, "/v1/admin/events", adminTok, map[string]any{
		"event_name": "Quiz", "type": "social", "location": "Bar", "participants": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		ID     string        `json:"id"`
		Events []model.Event `json:"events"`
	}](t, rec)
	if len(created.Events) != 1 || created.Events[0].Capacity != 2 {
		t.Fatalf("unexpected create response: %+v", created)
	}
	id := created.ID

	if rec := a.do(t, http.MethodPost, "/v1/admin/events", adminTok, map[string]any{"type": "social", "location": "Bar"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid create: expected 400, got %d", rec.Code)
	}

	// two bookings, then shrink below them
	_, t1 := a.signUpAndIn(t, "f1@example.com")
	_, t2 := a.signUpAndIn(t, "f2@example.com")
	for _, tok := range []string{t1, t2} {
		if rec := a.do(t, http.MethodPost, "/v1/events/"+id+"/book", tok, nil); rec.Code != http.StatusOK {
			t.Fatalf("book: %d", rec.Code)
		}
	}
	if rec := a.do(t, http.MethodPatch, "/v1/admin/events/"+id, adminTok, map[string]any{"participants": 1}); rec.Code != http.StatusConflict {
		t.Errorf("shrink below bookings: expected 409, got %d", rec.Code)
	}
	rec = a.do(t, http.MethodPatch, "/v1/admin/events/"+id, adminTok, map[string]any{"participants": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("grow: %d %s", rec.Code, rec.Body.String())
	}
	if e := decode[struct {
		Events []model.Event `json:"events"`
	}](t, rec).Events[0]; e.Capacity != 5 || e.Participants != 3 {
		t.Errorf("after resize: capacity=%d remaining=%d", e.Capacity, e.Participants)
	}
	if rec := a.do(t, http.MethodPatch, "/v1/admin/events/"+id, adminTok, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch: expected 400, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPut, "/v1/admin/events/"+id, adminTok, map[string]any{
		"event_name": "Quiz night", "type": "social", "location": "Bar", "participants": 5, "latitude": 50.9, "longitude": -1.4,
	}); rec.Code != http.StatusOK {
		t.Errorf("replace: %d %s", rec.Code, rec.Body.String())
	}

	if rec := a.do(t, http.MethodDelete, "/v1/admin/events/"+id, adminTok, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed delete: expected 400, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodDelete, "/v1/admin/events/"+id+"?confirm=true", adminTok, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodDelete, "/v1/admin/events/"+id+"?confirm=true", adminTok, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}

	// booked ids pointing at the deleted event are dropped from my-events
	if mine := decode[[]model.Event](t, a.do(t, http.MethodGet, "/v1/my-events", t1, nil)); len(mine) != 0 {
		t.Errorf("expected dangling booking dropped, got %+v", mine)
	}
}

func TestAdminAccounts(t *testing.T) {
	a := newApp(t)
	adminUID, _ := a.signUpAndIn(t, "root@example.com")
	if err := a.users.SetAdmin(context.Background(), adminUID, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	_, adminTok := a.signIn(t, "root@example.com")
	uid, userTok := a.signUpAndIn(t, "gus@example.com")

	path := "/v1/admin/accounts/" + uid + "/disabled"
	if rec := a.do(t, http.MethodPut, path, userTok, map[string]bool{"disabled": true}); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPut, path, adminTok, map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag: expected 400, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPut, "/v1/admin/accounts/ghost/disabled", adminTok, map[string]bool{"disabled": true}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown account: expected 404, got %d", rec.Code)
	}

	if rec := a.do(t, http.MethodPut, path, adminTok, map[string]bool{"disabled": true}); rec.Code != http.StatusOK {
		t.Fatalf("disable: %d %s", rec.Code, rec.Body.String())
	}
	rec := a.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "gus@example.com", "password": "secret1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled signin: expected 403, got %d", rec.Code)
	}
	if code := decode[map[string]string](t, rec)["code"]; code != identity.CodeUserDisabled {
		t.Errorf("unexpected code %q", code)
	}

	if rec := a.do(t, http.MethodPut, path, adminTok, map[string]bool{"disabled": false}); rec.Code != http.StatusOK {
		t.Fatalf("enable: %d", rec.Code)
	}
	a.signIn(t, "gus@example.com")
}

func TestUnknownPathsAreNotFound(t *testing.T) {
	a := newApp(t)
	for _, p := range []string{"/v1/nope", "/v1/events/x/y/z"} {
		if rec := a.do(t, http.MethodGet, p, "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", p, rec.Code)
		}
	}
}

func TestConcurrentBookingsForLastPlace(t *testing.T) {
	a := newApp(t)
	id := a.seedEvent(t, "Last one", 1, nil, nil)

	const n = 6
	tokens := make([]string, n)
	for i := range tokens {
		_, tokens[i] = a.signUpAndIn(t, "racer"+string(rune('a'+i))+"@example.com")
	}

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = a.do(t, http.MethodPost, "/v1/events/"+id+"/book", tokens[i], nil).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict, http.StatusServiceUnavailable:
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful booking, got %d (%v)", ok, codes)
	}
	e, _ := a.events.GetByID(context.Background(), id)
	if e.Participants != 0 {
		t.Errorf("expected 0 remaining, got %d", e.Participants)
	}
}
