package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	return db
}

func newTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	app := fiber.New()
	cfg := &config.Config{Webserver: config.Webserver{URL: "http://localhost", Port: 3000}}

	local := identity.NewLocalResolver(db)
	deps := &handler.Deps{Resolver: local, Local: local}

	svc := Service{}
	svc.Init(app, cfg, db, deps)

	return app
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) {
	t.Helper()

	user := models.User{
		Active:     active,
		Email:      email,
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, db.Create(&user).Error)
}

func postLogin(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestPost(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		seedEmail      string
		seedPassword   string
		seedActive     bool
		expectedStatus int
	}{
		{
			name:           "malformed body",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing password",
			body:           `{"email":"user@example.com"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown user",
			body:           `{"email":"user@example.com","password":"secret"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong password",
			body:           `{"email":"user@example.com","password":"wrong"}`,
			seedEmail:      "user@example.com",
			seedPassword:   "secret",
			seedActive:     true,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "disabled account",
			body:           `{"email":"user@example.com","password":"secret"}`,
			seedEmail:      "user@example.com",
			seedPassword:   "secret",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "successful login",
			body:           `{"email":"user@example.com","password":"secret"}`,
			seedEmail:      "user@example.com",
			seedPassword:   "secret",
			seedActive:     true,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)

			if tc.seedEmail != "" {
				seedUser(t, db, tc.seedEmail, tc.seedPassword, tc.seedActive)
			}

			resp := postLogin(t, newTestApp(t, db), tc.body)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
		})
	}
}

func TestPostIssuesUsableToken(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user@example.com", "secret", true)
	app := newTestApp(t, db)

	resp := postLogin(t, app, `{"email":"user@example.com","password":"secret"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)

	// the token resolves to the seeded user
	id, err := identity.NewLocalResolver(db).Resolve(context.Background(), body.Token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", id.Email)

	// a session cookie was set alongside
	var found bool

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session" && cookie.Value == body.Token {
			found = true
		}
	}

	assert.True(t, found, "session cookie must carry the token")
}
