package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/repository"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

const msgInvalidCredentials = "Identifiants invalides"

// AuthDeps groups AuthService collaborators.
type AuthDeps struct {
	DB       repository.DB
	Users    repository.AuthUserRepository
	Profiles repository.ProfileRepository
	Resets   repository.ResetTokenRepository
	JWTMgr   *auth.JWTManager
	Denylist auth.Denylist
	Lockout  *guard.Lockout
	Mailer   Mailer
	Events   events.Publisher
	ResetURL string
	Logger   *zap.Logger
}

// AuthService handles sign-up, sign-in, sign-out and password resets.
type AuthService struct {
	db       repository.DB
	users    repository.AuthUserRepository
	profiles repository.ProfileRepository
	resets   repository.ResetTokenRepository
	jwtMgr   *auth.JWTManager
	denylist auth.Denylist
	lockout  *guard.Lockout
	mailer   Mailer
	events   events.Publisher
	resetURL string
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(d AuthDeps) *AuthService {
	return &AuthService{
		db:       d.DB,
		users:    d.Users,
		profiles: d.Profiles,
		resets:   d.Resets,
		jwtMgr:   d.JWTMgr,
		denylist: d.Denylist,
		lockout:  d.Lockout,
		mailer:   d.Mailer,
		events:   d.Events,
		resetURL: d.ResetURL,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// Credentials holds the sign-up and sign-in request fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUserView is the public part of an auth user.
type AuthUserView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResult is returned on successful sign-up or sign-in.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      AuthUserView `json:"user"`
}

// SignUp creates the auth user and its default profile in one transaction.
func (s *AuthService) SignUp(ctx context.Context, in Credentials) (*AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	existing, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}
	if existing != nil {
		return nil, errEmailTaken()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}
	defer tx.Rollback(ctx)

	user := &domain.AuthUser{ID: uuid.New(), Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, tx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, errEmailTaken()
		}
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}
	profile := &domain.Profile{ID: user.ID, Currency: domain.DefaultCurrency}
	if _, err := s.profiles.CreateIfMissing(ctx, tx, profile); err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'inscription", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	return s.issue(ctx, user)
}

func errEmailTaken() *domain.AppError {
	return domain.ErrConflict("Un compte existe déjà avec cet email")
}

// SignIn checks the password and issues a token. ip is recorded with the
// attempt for lockout accounting.
func (s *AuthService) SignIn(ctx context.Context, in Credentials, ip string) (*AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrValidation("email et mot de passe requis")
	}
	if err := s.lockout.CheckLocked(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la connexion", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.lockout.RecordAttempt(ctx, email, ip, false)
		return nil, domain.ErrUnauthorized(msgInvalidCredentials)
	}

	s.lockout.RecordAttempt(ctx, email, ip, true)
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.AuthUser) (*AuthResult, error) {
	token, claims, err := s.jwtMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la connexion", err)
	}
	s.events.Publish(ctx, events.New(events.SessionSignedIn, user.ID, nil))
	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      AuthUserView{ID: user.ID, Email: user.Email},
	}, nil
}

// SignOut revokes the session's token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, sess *auth.Session) error {
	if err := s.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return domain.ErrInternal("Erreur lors de la déconnexion", err)
	}
	s.events.Publish(ctx, events.New(events.SessionSignedOut, sess.UserID, nil))
	return nil
}

// RequestPasswordReset mails a reset link when the email is registered.
// The outcome is the same either way so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return domain.ErrValidation(err.Error())
	}

	user, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.ErrInternal("Erreur lors de la demande de réinitialisation", err)
	}
	if user == nil {
		return nil
	}

	raw, err := newResetToken()
	if err != nil {
		return domain.ErrInternal("Erreur lors de la demande de réinitialisation", err)
	}
	now := s.now()
	token := &domain.PasswordResetToken{
		TokenHash: hashResetToken(raw),
		UserID:    user.ID,
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, s.db, token); err != nil {
		return domain.ErrInternal("Erreur lors de la demande de réinitialisation", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(raw)); err != nil {
		s.logger.Error("send password reset", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ConfirmPasswordReset sets a new password if token is known, unused and
// unexpired, then burns the token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if token == "" {
		return domain.ErrValidation("jeton requis")
	}
	if err := domain.ValidatePassword(password); err != nil {
		return domain.ErrValidation(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}
	defer tx.Rollback(ctx)

	tokenHash := hashResetToken(token)
	stored, err := s.resets.LockByHash(ctx, tx, tokenHash)
	if err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}
	now := s.now()
	if stored == nil || !stored.Usable(now) {
		return domain.ErrValidation("Lien de réinitialisation invalide ou expiré")
	}
	if err := s.users.UpdatePasswordHash(ctx, tx, stored.UserID, string(hash)); err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}
	if err := s.resets.MarkUsed(ctx, tx, tokenHash, now); err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("Erreur lors de la réinitialisation", err)
	}
	s.logger.Info("password reset", zap.String("user_id", stored.UserID.String()))
	return nil
}

func (s *AuthService) resetLink(token string) string {
	return s.resetURL + "?token=" + url.QueryEscape(token)
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
