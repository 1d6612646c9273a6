package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/turnoverhq/turnover-api/pkg/config"
	"github.com/turnoverhq/turnover-api/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// Claims represents the JWT claims for an admin session.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for an admin user
func CreateToken(username string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(jwtSecret())
}

// VerifyToken verifies a JWT token
func VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureAdminExists checks if any admin exists, if not create one from
// the configured credentials. A blank configured password leaves the
// system without an admin account rather than seeding a guessable one.
func EnsureAdminExists(db *gorm.DB) error {
	var count int64
	db.Model(&database.AdminUser{}).Count(&count)

	if count == 0 {
		username := config.AppConfig.AdminUsername
		if username == "" {
			username = "admin"
		}
		password := config.AppConfig.AdminPassword
		if password == "" {
			return nil
		}

		hash, err := HashPassword(password)
		if err != nil {
			return err
		}

		user := database.AdminUser{
			Username:     username,
			PasswordHash: hash,
		}

		return db.Create(&user).Error
	}
	return nil
}

// GenerateSyncKey creates a signed ingestion key using HMAC-SHA256.
// The key embeds the collaborator name so usage is attributable without
// a database lookup.
func GenerateSyncKey(name string) string {
	secret := config.AppConfig.SyncMasterKey
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(name))
	signature := hex.EncodeToString(h.Sum(nil))
	return name + "." + signature
}

// VerifySyncKey validates an HMAC-signed ingestion key and returns the
// collaborator name it was minted for.
func VerifySyncKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("invalid key format")
	}

	name := parts[0]
	providedSignature := parts[1]

	secret := config.AppConfig.SyncMasterKey
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(name))
	expectedSignature := hex.EncodeToString(h.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(providedSignature), []byte(expectedSignature)) {
		return "", errors.New("invalid signature")
	}

	return name, nil
}
