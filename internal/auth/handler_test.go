package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/response"
	"github.com/vidorahq/vidora/internal/token"
)

// --- Mock AuthService ---

// mockAuthService implements AuthService for handler tests.
type mockAuthService struct {
	registerFn         func(ctx context.Context, input RegisterInput, meta ClientMeta) (*User, string, error)
	loginFn            func(ctx context.Context, input LoginInput, meta ClientMeta) (string, bool, error)
	logoutFn           func(ctx context.Context, bearer string) error
	sendVerificationFn func(ctx context.Context, email string) error
	verifyEmailFn      func(ctx context.Context, tok string) (string, error)
	forgotPasswordFn   func(ctx context.Context, email string) error
	resetPasswordFn    func(ctx context.Context, tok, newPassword string) error
	authenticateFn     func(ctx context.Context, bearer string) (*token.SessionClaims, error)
	isEmailVerifiedFn  func(ctx context.Context, userID string) (bool, error)
	getUserFn          func(ctx context.Context, userID string) (*User, error)
}

func (m *mockAuthService) Register(ctx context.Context, input RegisterInput, meta ClientMeta) (*User, string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input, meta)
	}
	return &User{ID: "user-123"}, "issued-token", nil
}

func (m *mockAuthService) Login(ctx context.Context, input LoginInput, meta ClientMeta) (string, bool, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input, meta)
	}
	return "issued-token", false, nil
}

func (m *mockAuthService) Logout(ctx context.Context, bearer string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, bearer)
	}
	return nil
}

func (m *mockAuthService) SendVerification(ctx context.Context, email string) error {
	if m.sendVerificationFn != nil {
		return m.sendVerificationFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) VerifyEmail(ctx context.Context, tok string) (string, error) {
	if m.verifyEmailFn != nil {
		return m.verifyEmailFn(ctx, tok)
	}
	return "alice@example.com", nil
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.forgotPasswordFn != nil {
		return m.forgotPasswordFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, tok, newPassword)
	}
	return nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, bearer string) (*token.SessionClaims, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, bearer)
	}
	return &token.SessionClaims{UserID: "user-123"}, nil
}

func (m *mockAuthService) IsEmailVerified(ctx context.Context, userID string) (bool, error) {
	if m.isEmailVerifiedFn != nil {
		return m.isEmailVerifiedFn(ctx, userID)
	}
	return true, nil
}

func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return &User{ID: userID}, nil
}

// --- Helpers ---

// postJSON runs a handler against a JSON body and returns the recorder.
func postJSON(t *testing.T, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, handler(c)
}

// decodeEnvelope parses a recorded success response body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

// --- Register Handler Tests ---

func TestHandlerRegister_Success(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	rec, err := postJSON(t, h.Register,
		`{"name":"Alice","email":"alice@example.com","password":"secret123"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if !env.OK {
		t.Error("expected ok=true")
	}
	if env.StatusCode != http.StatusCreated {
		t.Errorf("expected body statusCode 201, got %d", env.StatusCode)
	}
	data, _ := env.Data.(map[string]any)
	if data["token"] != "issued-token" {
		t.Errorf("expected issued token in data, got %v", env.Data)
	}
}

func TestHandlerRegister_MissingFields(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	_, err := postJSON(t, h.Register, `{"email":"alice@example.com"}`)
	assertAppError(t, err, 400)
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "password") {
		t.Errorf("expected missing field names in message, got: %v", err)
	}
}

func TestHandlerRegister_ShortPassword(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	_, err := postJSON(t, h.Register,
		`{"name":"Alice","email":"alice@example.com","password":"abc"}`)
	assertAppError(t, err, 400)
}

func TestHandlerRegister_WhitespaceOnlyFieldsAreMissing(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	_, err := postJSON(t, h.Register,
		`{"name":"   ","email":"alice@example.com","password":"secret123"}`)
	assertAppError(t, err, 400)
}

// --- Login Handler Tests ---

func TestHandlerLogin_Success(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	rec, err := postJSON(t, h.Login,
		`{"email":"alice@example.com","password":"secret123"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Login successful" {
		t.Errorf("unexpected message: %s", env.Message)
	}
	data, _ := env.Data.(map[string]any)
	if data["token"] != "issued-token" {
		t.Errorf("expected token in data, got %v", env.Data)
	}
}

func TestHandlerLogin_UnverifiedGets200WithoutToken(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, input LoginInput, meta ClientMeta) (string, bool, error) {
			return "", true, nil
		},
	}
	h := NewHandler(svc)

	rec, err := postJSON(t, h.Login,
		`{"email":"alice@example.com","password":"secret123"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Verification email sent" {
		t.Errorf("unexpected message: %s", env.Message)
	}
	if strings.Contains(rec.Body.String(), "issued-token") {
		t.Error("unverified login must not return a token")
	}
}

// --- Verify Email Handler Tests ---

func TestHandlerVerifyEmail_MissingToken(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/verify-email", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.VerifyEmail(c)
	assertAppError(t, err, 400)
}

func TestHandlerVerifyEmail_Success(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/verify-email?token=some-token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyEmail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decodeEnvelope(t, rec)
	data, _ := env.Data.(map[string]any)
	if data["email"] != "alice@example.com" {
		t.Errorf("expected verified email in data, got %v", env.Data)
	}
}

// --- Logout Handler Tests ---

func TestHandlerLogout_NoToken(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Logout(c)
	assertAppError(t, err, 400)
}

func TestHandlerLogout_Success(t *testing.T) {
	var loggedOutBearer string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, bearer string) error {
			loggedOutBearer = bearer
			return nil
		},
	}
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer the-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loggedOutBearer != "the-token" {
		t.Errorf("expected bearer passed to service, got %q", loggedOutBearer)
	}
}

// --- Reset Password Handler Tests ---

func TestHandlerResetPassword_Success(t *testing.T) {
	var gotToken, gotPassword string
	svc := &mockAuthService{
		resetPasswordFn: func(ctx context.Context, tok, newPassword string) error {
			gotToken, gotPassword = tok, newPassword
			return nil
		},
	}
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reset-password/reset-tok",
		strings.NewReader(`{"password":"new-password"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("reset-tok")

	if err := h.ResetPassword(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "reset-tok" || gotPassword != "new-password" {
		t.Errorf("expected (reset-tok, new-password), got (%s, %s)", gotToken, gotPassword)
	}
}

func TestHandlerResetPassword_MissingPassword(t *testing.T) {
	h := NewHandler(&mockAuthService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reset-password/reset-tok",
		strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("token")
	c.SetParamValues("reset-tok")

	err := h.ResetPassword(c)
	assertAppError(t, err, 400)
}

// --- Current User Handler Tests ---

func TestHandlerCurrentUser_HidesPasswordHash(t *testing.T) {
	svc := &mockAuthService{
		getUserFn: func(ctx context.Context, userID string) (*User, error) {
			return &User{
				ID:           userID,
				Email:        "alice@example.com",
				PasswordHash: "super-secret-hash",
			}, nil
		},
	}
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(contextKeyUserID, "user-123")

	if err := h.CurrentUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "super-secret-hash") {
		t.Error("password hash must never appear in a response body")
	}
}
