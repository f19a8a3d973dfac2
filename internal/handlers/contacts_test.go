package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ovasylenko/contactbook-backend/internal/models"
	"github.com/ovasylenko/contactbook-backend/internal/services"
)

func contactsRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/contacts", CreateContact)
	r.Get("/contacts", GetContacts)
	r.Get("/contacts/{contactID}", GetContact)
	r.Delete("/contacts/{contactID}", DeleteContact)
	return r
}

func issueAccessToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := tokenService.Issue(user.ID, user.Email, services.PurposeAccess, time.Hour)
	require.NoError(t, err)
	return token
}

func serve(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestContacts_RequireAuth(t *testing.T) {
	setupAuthTest(t)
	r := contactsRouter()

	for _, target := range []string{"/contacts", "/contacts/" + uuid.NewString()} {
		rec := serve(r, http.MethodGet, target, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "target %s", target)
	}
}

func TestCreateContact_Validation(t *testing.T) {
	mock, _ := setupAuthTest(t)
	user := newTestUser(t, "password123")
	token := issueAccessToken(t, user)

	// One lookup fills the cache; validation failures never reach the contacts table
	mock.ExpectQuery("SELECT").WithArgs(user.ID).WillReturnRows(userRows(user))

	r := contactsRouter()
	cases := []struct {
		name string
		body string
	}{
		{"missing first name", `{"last_name":"Petrenko"}`},
		{"missing last name", `{"first_name":"Ivan"}`},
		{"bad birthday", `{"first_name":"Ivan","last_name":"Petrenko","birthday":"15.03.1990"}`},
		{"not json", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, http.MethodPost, "/contacts", token, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContact_BadID(t *testing.T) {
	mock, _ := setupAuthTest(t)
	user := newTestUser(t, "password123")
	token := issueAccessToken(t, user)

	mock.ExpectQuery("SELECT").WithArgs(user.ID).WillReturnRows(userRows(user))

	// A malformed ID is indistinguishable from a missing contact
	rec := serve(contactsRouter(), http.MethodGet, "/contacts/not-a-uuid", token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteContact_Foreign(t *testing.T) {
	mock, _ := setupAuthTest(t)
	user := newTestUser(t, "password123")
	token := issueAccessToken(t, user)
	contactID := uuid.New()

	mock.ExpectQuery("SELECT").WithArgs(user.ID).WillReturnRows(userRows(user))
	mock.ExpectExec("DELETE FROM contacts").
		WithArgs(contactID, user.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := serve(contactsRouter(), http.MethodDelete, "/contacts/"+contactID.String(), token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
