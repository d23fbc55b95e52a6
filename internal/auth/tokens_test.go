package auth

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHashPassword(t *testing.T) {
	password := "testpassword123"
	hash, err := HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
}

func TestCheckPassword(t *testing.T) {
	password := "testpassword123"
	hash, _ := HashPassword(password)

	assert.True(t, CheckPassword(password, hash))
	assert.False(t, CheckPassword("wrongpassword", hash))
}

func TestService_GenerateToken(t *testing.T) {
	service := NewService(nil, testLogger(), "test-secret", time.Minute)

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "propietario",
		Role:     models.RoleAdmin,
	}

	token, err := service.GenerateToken(user)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestService_ValidateToken(t *testing.T) {
	service := NewService(nil, testLogger(), "test-secret", time.Minute)

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "propietario",
		Role:     models.RoleAdmin,
	}
	token, _ := service.GenerateToken(user)

	// Valid token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Role, claims.Role)

	// Invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidToken, err)

	// Token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	// Token signed with another secret
	other := NewService(nil, testLogger(), "other-secret", time.Minute)
	otherToken, _ := other.GenerateToken(user)
	_, err = service.ValidateToken(otherToken)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExpiredToken(t *testing.T) {
	service := &Service{
		log:       testLogger(),
		jwtSecret: []byte("test-secret"),
		tokenExp:  -time.Minute,
	}

	user := &models.User{
		ID:   primitive.NewObjectID(),
		Role: models.RoleUser,
	}
	token, err := service.GenerateToken(user)
	assert.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	extracted, err := ExtractTokenFromHeader("Bearer some-token")
	assert.NoError(t, err)
	assert.Equal(t, "some-token", extracted)

	_, err = ExtractTokenFromHeader("")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)
}
