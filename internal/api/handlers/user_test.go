package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/middleware"
)

const (
	TestValidPassword   = "testpassword123"
	TestWrongPassword   = "wrongpassword"
	TestCorrectPassword = "correctpassword"
)

type userPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func newUserPoolAdapter(mock pgxmock.PgxPoolIface) database.DatabasePool {
	return &userPoolAdapter{mock: mock}
}

func (a *userPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return a.mock.QueryRow(ctx, sql, args...)
}

func (a *userPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := a.mock.Exec(ctx, sql, args...)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT %d", result.RowsAffected())), nil
}

func (a *userPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return a.mock.Query(ctx, sql, args...)
}

const testJWTSecret = "test-secret-key-for-handler-tests"

func userRouter(t *testing.T, mockPool pgxmock.PgxPoolIface) (*gin.Engine, *middleware.AuthMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := middleware.NewAuthMiddleware(testJWTSecret)
	security := config.SecurityConfig{
		JWTSecret:  testJWTSecret,
		JWTExpiry:  "1h",
		BcryptCost: bcrypt.MinCost,
	}
	h := NewUserHandler(newUserPoolAdapter(mockPool), auth, security, testLogger())

	router := gin.New()
	users := router.Group("/api/v1/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)

	protected := users.Group("")
	protected.Use(auth.RequireAuth())
	protected.GET("/profile", h.Profile)
	protected.PUT("/profile", h.UpdateProfile)

	return router, auth
}

func TestRegister_CreatesUser(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT COUNT").
		WithArgs("trader@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mockPool.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "trader@example.com", pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	router, _ := userRouter(t, mockPool)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"trader@example.com","password":%q}`, TestValidPassword))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "trader@example.com")
	assert.NotContains(t, w.Body.String(), TestValidPassword)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT COUNT").
		WithArgs("trader@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	router, _ := userRouter(t, mockPool)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"trader@example.com","password":%q}`, TestValidPassword))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", fmt.Sprintf(`{"password":%q}`, TestValidPassword)},
		{"malformed email", fmt.Sprintf(`{"email":"not-an-email","password":%q}`, TestValidPassword)},
		{"short password", `{"email":"trader@example.com","password":"short"}`},
		{"non-numeric chat id", fmt.Sprintf(`{"email":"trader@example.com","password":%q,"telegram_chat_id":"abc"}`, TestValidPassword)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mockPool.Close()

			router, _ := userRouter(t, mockPool)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", bytes.NewBufferString(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func userRow(t *testing.T, id, email, password string) *pgxmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	chatID := "777"
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{"id", "email", "password_hash", "telegram_chat_id", "created_at", "updated_at"}).
		AddRow(id, email, string(hash), &chatID, now, now)
}

func TestLogin_IssuesToken(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("trader@example.com").
		WillReturnRows(userRow(t, "user-1", "trader@example.com", TestCorrectPassword))

	router, auth := userRouter(t, mockPool)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"trader@example.com","password":%q}`, TestCorrectPassword))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", body))

	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.User.ID)
	require.NotEmpty(t, resp.Token)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("trader@example.com").
		WillReturnRows(userRow(t, "user-1", "trader@example.com", TestCorrectPassword))

	router, _ := userRouter(t, mockPool)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"trader@example.com","password":%q}`, TestWrongPassword))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
}

func TestLogin_UnknownEmail(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	router, _ := userRouter(t, mockPool)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"nobody@example.com","password":%q}`, TestValidPassword))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile_RequiresToken(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	router, _ := userRouter(t, mockPool)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile_ReturnsUser(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("user-1").
		WillReturnRows(userRow(t, "user-1", "trader@example.com", TestCorrectPassword))

	router, auth := userRouter(t, mockPool)
	token, err := auth.GenerateToken("user-1", "trader@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trader@example.com")
	assert.Contains(t, w.Body.String(), "777")
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestUpdateProfile(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("UPDATE users SET telegram_chat_id").
		WithArgs("user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("user-1").
		WillReturnRows(userRow(t, "user-1", "trader@example.com", TestCorrectPassword))

	router, auth := userRouter(t, mockPool)
	token, err := auth.GenerateToken("user-1", "trader@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/profile",
		bytes.NewBufferString(`{"telegram_chat_id":"888"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
