//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/service"
)

// TestUserAgent is sent on every request.
const TestUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0 Safari/537.36"

// Do performs a request with an optional JSON body and bearer token.
func (env *TestEnv) Do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.DoWithHeaders(method, path, body, token, nil)
}

// DoWithHeaders is Do with extra request headers.
func (env *TestEnv) DoWithHeaders(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", TestUserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, "")
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPost, path, body, token)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, token)
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPatch, path, body, token)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodDelete, path, nil, token)
}

// Register creates a pending account and returns the registration challenge.
func (env *TestEnv) Register(email, password string) service.Challenge {
	env.t.Helper()
	resp := env.POST("/auth/register", map[string]string{
		"full_name": "Integration User",
		"email":     email,
		"mobile":    "+15557654321",
		"password":  password,
	}, "")
	AssertStatus(env.t, resp, http.StatusCreated)

	var ch service.Challenge
	DecodeJSON(env.t, resp, &ch)
	return ch
}

// Verify submits an OTP from a new device and returns the raw response.
func (env *TestEnv) Verify(email string, purpose domain.OTPPurpose, code string) *http.Response {
	env.t.Helper()
	return env.VerifyFrom("", email, purpose, code)
}

// VerifyFrom submits an OTP from the device with the given fingerprint.
func (env *TestEnv) VerifyFrom(fingerprint, email string, purpose domain.OTPPurpose, code string) *http.Response {
	env.t.Helper()
	var headers map[string]string
	if fingerprint != "" {
		headers = map[string]string{handler.FingerprintHeader: fingerprint}
	}
	return env.DoWithHeaders(http.MethodPost, "/auth/otp/verify", map[string]string{
		"email": email, "purpose": string(purpose), "code": code,
	}, "", headers)
}

// Login runs the password step and returns the login challenge.
func (env *TestEnv) Login(email, password string) service.Challenge {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{"email": email, "password": password}, "")
	AssertStatus(env.t, resp, http.StatusOK)

	var ch service.Challenge
	DecodeJSON(env.t, resp, &ch)
	return ch
}

// SignIn runs login plus OTP verification from a new device and returns the
// granted session.
func (env *TestEnv) SignIn(email, password string) service.LoginResult {
	env.t.Helper()
	return env.SignInFrom("", email, password)
}

// SignInFrom is SignIn from a known device fingerprint.
func (env *TestEnv) SignInFrom(fingerprint, email, password string) service.LoginResult {
	env.t.Helper()
	ch := env.Login(email, password)
	resp := env.VerifyFrom(fingerprint, email, domain.OTPLogin, ch.OTP)
	AssertStatus(env.t, resp, http.StatusOK)

	var res service.LoginResult
	DecodeJSON(env.t, resp, &res)
	if res.Token == "" {
		env.t.Fatalf("SignIn %s: no token, decision %s", email, res.Policy.Decision)
	}
	return res
}

// DemoToken signs in one of the seeded demo accounts.
func (env *TestEnv) DemoToken(email string) string {
	env.t.Helper()
	return env.SignIn(email, service.DemoPassword).Token
}
