package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/models"
)

const (
	// MaxLoginAttempts failed logins in a row lock the account.
	MaxLoginAttempts = 5
	// LockDuration is how long a locked account stays locked.
	LockDuration = 15 * time.Minute

	minUsernameLen = 4
	maxUsernameLen = 50
)

// invalidCredentials is the single message every login failure produces,
// whether the user does not exist, the account is locked or the password is
// wrong. Anything more specific would leak which accounts exist.
const invalidCredentials = "Credenciales no validas"

// Service handles registration, login with lockout and password changes.
type Service struct {
	users     db.UserCollection
	log       *logrus.Logger
	jwtSecret []byte
	tokenExp  time.Duration
}

// NewService creates a new authentication service.
func NewService(users db.UserCollection, log *logrus.Logger, jwtSecret string, tokenExp time.Duration) *Service {
	if tokenExp <= 0 {
		tokenExp = 30 * time.Minute
	}
	return &Service{
		users:     users,
		log:       log,
		jwtSecret: []byte(jwtSecret),
		tokenExp:  tokenExp,
	}
}

// Register creates an account with role=user and returns its public fields.
func (s *Service) Register(ctx context.Context, username, password string) (*models.PublicUser, error) {
	if username == "" || password == "" {
		return nil, apperrors.Validation("Debe ingresar usuario y contraseña")
	}

	normalized := models.NormalizeUsername(username)
	if len(normalized) < minUsernameLen || len(normalized) > maxUsernameLen {
		return nil, apperrors.Validation("El nombre de usuario debe tener entre 4 y 50 caracteres")
	}

	existing, err := s.users.FindByUsername(ctx, normalized)
	if err != nil {
		return nil, apperrors.Internal("register lookup failed", err)
	}
	if existing != nil {
		s.log.WithField("username", normalized).Warn("register failed: username already taken")
		return nil, apperrors.Duplicate("Ese nombre ya esta en uso")
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("hashing password failed", err)
	}

	user, err := s.users.Insert(ctx, models.User{
		Username:     normalized,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	})
	if err != nil {
		// The unique index closes the lookup/insert race.
		if db.IsDuplicate(err) {
			return nil, apperrors.Duplicate("Ese nombre ya esta en uso")
		}
		return nil, apperrors.Internal("inserting user failed", err)
	}

	public := user.Public()
	return &public, nil
}

// Login verifies credentials and issues a token. Every failure path returns
// the same generic error.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	if username == "" || password == "" {
		return nil, apperrors.Auth(invalidCredentials)
	}

	normalized := models.NormalizeUsername(username)
	user, err := s.users.FindByUsername(ctx, normalized)
	if err != nil {
		return nil, apperrors.Internal("login lookup failed", err)
	}
	if user == nil {
		s.log.WithField("username", normalized).Warn("login failed: unknown username")
		return nil, apperrors.Auth(invalidCredentials)
	}

	now := time.Now()
	if user.IsLocked(now) {
		s.log.WithFields(logrus.Fields{
			"username":  normalized,
			"lockUntil": user.LockUntil,
		}).Warn("login failed: account temporarily locked")
		return nil, apperrors.Auth(invalidCredentials)
	}

	if !CheckPassword(password, user.PasswordHash) {
		attempts := user.LoginAttempts + 1
		var lockUntil *time.Time
		if attempts >= MaxLoginAttempts {
			t := now.Add(LockDuration)
			lockUntil = &t
			s.log.WithFields(logrus.Fields{
				"username":  normalized,
				"attempts":  attempts,
				"lockUntil": t,
			}).Warn("account locked due to repeated failures")
		} else {
			s.log.WithFields(logrus.Fields{
				"username": normalized,
				"attempts": attempts,
			}).Warn("login failed: wrong password")
		}

		if err := s.users.RecordFailedLogin(ctx, user.ID.Hex(), attempts, lockUntil); err != nil {
			s.log.WithError(err).Error("could not record failed login attempt")
		}
		return nil, apperrors.Auth(invalidCredentials)
	}

	if err := s.users.ResetLoginState(ctx, user.ID.Hex()); err != nil {
		s.log.WithError(err).Error("could not reset login state")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Internal("signing token failed", err)
	}

	s.log.WithFields(logrus.Fields{
		"userId":   user.ID.Hex(),
		"username": user.Username,
	}).Info("user logged in")

	return &models.LoginResponse{
		Token: token,
		User:  user.Public(),
	}, nil
}

// ChangePassword verifies the caller's current password and stores a new
// hash. Outstanding tokens stay valid until they expire; stateless tokens
// cannot be revoked.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.Validation("Faltan datos")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return apperrors.Internal("change password lookup failed", err)
	}
	if user == nil {
		return apperrors.NotFound("Usuario no encontrado")
	}

	if !CheckPassword(currentPassword, user.PasswordHash) {
		return apperrors.Auth("Contraseña actual incorrecta")
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("hashing password failed", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return apperrors.Internal("updating password failed", err)
	}

	s.log.WithField("userId", userID).Info("user changed password")
	return nil
}
