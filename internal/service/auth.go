package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerotrust/platform/internal/audit"
	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/device"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/guard"
	"github.com/zerotrust/platform/internal/otp"
	"github.com/zerotrust/platform/internal/policy"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/signal"
)

// ClientContext describes the caller of an authentication request.
type ClientContext struct {
	IP          string
	UserAgent   string
	Fingerprint string
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users     repository.UserRepository
	Sessions  repository.SessionRepository
	OTPs      *otp.Manager
	Devices   *device.Registry
	Collector *signal.Collector
	Evaluator *policy.Evaluator
	Failures  guard.FailureCounter
	Audit     *audit.Log
	JWT       *auth.JWTManager
	Logger    *slog.Logger

	// ExposeOTP returns issued codes to the caller. Demo mode only.
	ExposeOTP bool
}

// AuthService runs registration, OTP-gated login, and the policy decision.
type AuthService struct {
	AuthDeps
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{AuthDeps: deps, now: time.Now}
}

// RegisterInput holds the registration request fields.
type RegisterInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyInput holds an OTP verification attempt.
type VerifyInput struct {
	Email   string            `json:"email"`
	Purpose domain.OTPPurpose `json:"purpose"`
	Code    string            `json:"code"`
}

// ResendInput asks for a fresh code.
type ResendInput struct {
	Email   string            `json:"email"`
	Purpose domain.OTPPurpose `json:"purpose"`
}

// Challenge is returned when a flow needs an OTP before it can continue.
type Challenge struct {
	UserID    uuid.UUID         `json:"user_id"`
	Email     string            `json:"email"`
	Purpose   domain.OTPPurpose `json:"purpose"`
	ExpiresAt time.Time         `json:"expires_at"`
	OTP       string            `json:"otp,omitempty"`
}

// LoginResult is the outcome of a verified OTP. Token is empty when the
// policy blocked the login.
type LoginResult struct {
	Token         string              `json:"token,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	User          *domain.User        `json:"user"`
	Device        *domain.Device      `json:"device"`
	DeviceCreated bool                `json:"device_created"`
	Fingerprint   string              `json:"fingerprint"`
	Policy        domain.PolicyResult `json:"policy"`
}

// SessionView is the current session as shown to its owner.
type SessionView struct {
	User      *domain.User        `json:"user"`
	Device    *domain.Device      `json:"device,omitempty"`
	Policy    domain.PolicyResult `json:"policy"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Register creates a pending account and issues a registration code.
func (s *AuthService) Register(ctx context.Context, client ClientContext, input RegisterInput) (*Challenge, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		return nil, domain.ErrValidation("full name is required")
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateMobile(input.Mobile); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	existing, err := s.Users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyRegistered()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		FullName:     input.FullName,
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.StatusPendingVerification,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrEmailAlreadyRegistered()
		}
		return nil, domain.ErrInternal("create user", err)
	}

	rec, err := s.OTPs.Issue(ctx, user.ID, domain.OTPRegistration)
	if err != nil {
		return nil, err
	}

	origin := s.Collector.Origin(ctx, client.IP)
	base := domain.AuditDraft{UserID: user.ID, UserEmail: user.Email, Outcome: domain.OutcomeSuccess}.WithOrigin(origin)
	s.Audit.Record(ctx,
		withAction(base, domain.ActionRegister, "New user registration"),
		withAction(base, domain.ActionOTPSent, "Registration OTP sent"),
	)

	s.Logger.Info("user registered", "user_id", user.ID)
	return s.challenge(user, rec), nil
}

// Login checks credentials and issues a login code. It never grants a session
// by itself.
func (s *AuthService) Login(ctx context.Context, client ClientContext, input LoginInput) (*Challenge, error) {
	email := domain.NormalizeEmail(input.Email)
	if err := guard.CheckLocked(ctx, s.Failures, email); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		s.Failures.RecordAttempt(ctx, email, client.IP, false)
		return nil, domain.ErrInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.Failures.RecordAttempt(ctx, email, client.IP, false)
		origin := s.Collector.Origin(ctx, client.IP)
		s.Audit.Record(ctx, domain.AuditDraft{
			UserID:    user.ID,
			UserEmail: user.Email,
			Action:    domain.ActionLoginFail,
			Details:   "Invalid password",
			Outcome:   domain.OutcomeFailure,
		}.WithOrigin(origin))
		return nil, domain.ErrInvalidCredentials()
	}

	if err := policy.CheckAccount(user); err != nil {
		return nil, err
	}

	rec, err := s.OTPs.Issue(ctx, user.ID, domain.OTPLogin)
	if err != nil {
		return nil, err
	}

	origin := s.Collector.Origin(ctx, client.IP)
	s.Audit.Record(ctx, domain.AuditDraft{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    domain.ActionOTPSent,
		Details:   "Login OTP sent",
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(origin))

	return s.challenge(user, rec), nil
}

// VerifyOTP checks the code, resolves the device, and runs the policy. A
// block decision is returned as a result without a session.
func (s *AuthService) VerifyOTP(ctx context.Context, client ClientContext, input VerifyInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if !input.Purpose.Valid() {
		return nil, domain.ErrValidation("purpose must be registration or login")
	}
	if err := guard.CheckLocked(ctx, s.Failures, email); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNoPendingOTP()
	}

	if err := s.OTPs.Verify(ctx, user.ID, input.Purpose, strings.TrimSpace(input.Code)); err != nil {
		if domain.HasCode(err, domain.CodeOTPInvalid) || domain.HasCode(err, domain.CodeOTPTooManyAttempts) {
			s.Failures.RecordAttempt(ctx, email, client.IP, false)
			origin := s.Collector.Origin(ctx, client.IP)
			s.Audit.Record(ctx, domain.AuditDraft{
				UserID:    user.ID,
				UserEmail: user.Email,
				Action:    domain.ActionOTPFail,
				Details:   "Invalid OTP entered",
				Outcome:   domain.OutcomeFailure,
			}.WithOrigin(origin))
		}
		return nil, err
	}

	if input.Purpose == domain.OTPRegistration && user.Status == domain.StatusPendingVerification {
		user.Status = domain.StatusActive
		if err := s.Users.Update(ctx, user); err != nil {
			return nil, domain.ErrInternal("activate user", err)
		}
	}
	if err := policy.CheckAccount(user); err != nil {
		return nil, err
	}
	s.Failures.RecordAttempt(ctx, email, client.IP, true)

	fingerprint := client.Fingerprint
	if fingerprint == "" {
		fingerprint = signal.NewFingerprint()
	}
	dev, created, err := s.Devices.Resolve(ctx, user.ID, fingerprint, client.UserAgent)
	if err != nil {
		return nil, err
	}

	posture := dev.Posture
	signals := s.Collector.Collect(ctx, signal.Request{
		IP:             client.IP,
		UserAgent:      client.UserAgent,
		FailedAttempts: s.Failures.RecentFailures(ctx, email),
		DeviceApproved: dev.Approved,
		Posture:        &posture,
	})

	tx := s.Evaluator.Run(policy.Actor{UserID: user.ID, Email: user.Email}, dev.Label(), signals)

	verified := domain.AuditDraft{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    domain.ActionOTPVerified,
		Details:   "OTP verified successfully",
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(signals.Origin).WithRisk(tx.Result.RiskScore)
	s.Audit.Record(ctx, append([]domain.AuditDraft{verified}, tx.Audit...)...)

	result := &LoginResult{
		User:          user,
		Device:        dev,
		DeviceCreated: created,
		Fingerprint:   fingerprint,
		Policy:        tx.Result,
	}

	s.Logger.Info("policy decision",
		"user_id", user.ID,
		"device_id", dev.ID,
		"decision", tx.Result.Decision,
		"risk_score", tx.Result.RiskScore,
	)

	if !tx.Granted() {
		return result, nil
	}

	now := s.now().UTC()
	session := &domain.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		DeviceID:   dev.ID,
		LastPolicy: tx.Result,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.JWT.Expiry()),
	}
	if err := s.Sessions.Put(ctx, session); err != nil {
		return nil, domain.ErrInternal("store session", err)
	}
	token, err := s.JWT.GenerateToken(session, user)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	result.Token = token
	result.ExpiresAt = &session.ExpiresAt
	return result, nil
}

// ResendOTP supersedes a pending code for the account. It never starts a
// flow: a login code exists only after the password check in Login, and a
// registration code only after Register.
func (s *AuthService) ResendOTP(ctx context.Context, client ClientContext, input ResendInput) (*Challenge, error) {
	email := domain.NormalizeEmail(input.Email)
	if !input.Purpose.Valid() {
		return nil, domain.ErrValidation("purpose must be registration or login")
	}
	if err := guard.CheckLocked(ctx, s.Failures, email); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNoPendingOTP()
	}

	switch input.Purpose {
	case domain.OTPRegistration:
		if user.Status != domain.StatusPendingVerification {
			return nil, domain.ErrNoPendingOTP()
		}
	case domain.OTPLogin:
		if err := policy.CheckAccount(user); err != nil {
			return nil, err
		}
	}

	pending, err := s.OTPs.Pending(ctx, user.ID, input.Purpose)
	if err != nil {
		return nil, err
	}
	if !pending {
		return nil, domain.ErrNoPendingOTP()
	}

	rec, err := s.OTPs.Resend(ctx, user.ID, input.Purpose)
	if err != nil {
		return nil, err
	}

	origin := s.Collector.Origin(ctx, client.IP)
	s.Audit.Record(ctx, domain.AuditDraft{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    domain.ActionOTPSent,
		Details:   fmt.Sprintf("OTP resent (%s)", input.Purpose),
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(origin))

	return s.challenge(user, rec), nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, client ClientContext, session *domain.Session) error {
	if err := s.Sessions.Delete(ctx, session.ID); err != nil {
		return domain.ErrInternal("delete session", err)
	}

	var email string
	if user, err := s.Users.FindByID(ctx, session.UserID); err == nil && user != nil {
		email = user.Email
	}
	origin := s.Collector.Origin(ctx, client.IP)
	s.Audit.Record(ctx, domain.AuditDraft{
		UserID:    session.UserID,
		UserEmail: email,
		Action:    domain.ActionLogout,
		Details:   "User logged out",
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(origin))
	return nil
}

// CurrentSession returns the caller's account, device, and last decision.
func (s *AuthService) CurrentSession(ctx context.Context, session *domain.Session) (*SessionView, error) {
	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound(session.UserID.String())
	}
	if err := policy.CheckAccount(user); err != nil {
		return nil, err
	}

	view := &SessionView{User: user, Policy: session.LastPolicy, ExpiresAt: session.ExpiresAt}
	dev, err := s.Devices.Get(ctx, session.DeviceID)
	switch {
	case err == nil:
		view.Device = dev
	case !domain.HasCode(err, domain.CodeNotFound):
		return nil, err
	}
	return view, nil
}

// RequestDeviceApproval records that the session's device wants approval.
func (s *AuthService) RequestDeviceApproval(ctx context.Context, client ClientContext, session *domain.Session) (*domain.Device, error) {
	dev, err := s.Devices.Get(ctx, session.DeviceID)
	if err != nil {
		return nil, err
	}
	if dev.Approved {
		return nil, domain.ErrConflict("device already approved")
	}

	user, err := s.Users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound(session.UserID.String())
	}

	origin := s.Collector.Origin(ctx, client.IP)
	s.Audit.Record(ctx, domain.AuditDraft{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    domain.ActionDeviceApprovalRequest,
		Details:   "Device approval requested: " + dev.Label(),
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(origin))
	return dev, nil
}

func (s *AuthService) challenge(user *domain.User, rec *domain.OTPRecord) *Challenge {
	c := &Challenge{
		UserID:    user.ID,
		Email:     user.Email,
		Purpose:   rec.Purpose,
		ExpiresAt: rec.ExpiresAt,
	}
	if s.ExposeOTP {
		c.OTP = rec.Code
	}
	return c
}

func withAction(d domain.AuditDraft, action domain.AuditAction, details string) domain.AuditDraft {
	d.Action = action
	d.Details = details
	return d
}
