package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

type fakeUserStore struct {
	byID    map[string]model.User
	byEmail map[string]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]model.User{}, byEmail: map[string]model.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u model.User) error {
	if _, exists := f.byEmail[u.Email]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return model.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, u model.User) error {
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return nil
}

const testSecret = "test-secret"

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestRegisterLoginMe(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(store, testLogger(), testSecret, time.Hour)

	// Register.
	body := `{"name":"Ana","email":"Ana@Example.com","password":"secret123"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var reg tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if reg.User.Email != "ana@example.com" {
		t.Fatalf("email should be lowercased, got %q", reg.User.Email)
	}
	if reg.Token == "" {
		t.Fatal("expected a token")
	}

	// Login.
	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"secret123"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Me, via the real middleware so the token is actually verified.
	protected := auth.RequireUser(testSecret)(http.HandlerFunc(h.Me))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var me userResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.ID != reg.User.ID {
		t.Fatalf("me returned wrong user: %q vs %q", me.ID, reg.User.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(store, testLogger(), testSecret, time.Hour)

	body := `{"name":"Ana","email":"ana@example.com","password":"secret123"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rr.Code)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	h := NewAuthHandler(newFakeUserStore(), testLogger(), testSecret, time.Hour)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(store, testLogger(), testSecret, time.Hour)

	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"secret123"}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email":"nobody@example.com","password":"x"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: expected 401, got %d", rr.Code)
	}
}

func TestProfileUpdate(t *testing.T) {
	store := newFakeUserStore()
	store.byID["u1"] = model.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}
	h := NewProfileHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/profile",
		strings.NewReader(`{"phone":"+34 600 000 000","latitude":39.47,"longitude":-0.38}`))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.Update(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	u := store.byID["u1"]
	if u.Phone != "+34 600 000 000" || u.Latitude == nil || *u.Latitude != 39.47 {
		t.Fatalf("update not applied: %+v", u)
	}
	if u.Name != "Ana" {
		t.Fatalf("absent fields must be preserved, got name %q", u.Name)
	}
}

func TestProfileUpdateEmptyNameRejected(t *testing.T) {
	store := newFakeUserStore()
	store.byID["u1"] = model.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}
	h := NewProfileHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/profile", strings.NewReader(`{"name":"  "}`))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.Update(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
