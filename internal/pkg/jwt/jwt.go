package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Tokens are issued by the HRIS identity service with the same secret; this
// service only verifies them and issues short-lived SSE tokens.
type Service interface {
	GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error)
	GenerateSSEToken(userID string, companyID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (SSEClaims, error)
	JWTAuth() *jwtauth.JWTAuth
}

// SSEClaims identifies the subscriber of an event stream.
type SSEClaims struct {
	UserID    string
	CompanyID string
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(userID string, companyID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"type":       "sse",
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns who it was issued to
func (j *JWTService) ValidateSSEToken(tokenString string) (SSEClaims, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return SSEClaims{}, err
	}
	if err := jwt.Validate(token, jwt.WithAcceptableSkew(30*time.Second)); err != nil {
		return SSEClaims{}, err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return SSEClaims{}, jwt.ErrInvalidJWT()
	}

	var claims SSEClaims
	for key, dst := range map[string]*string{"user_id": &claims.UserID, "company_id": &claims.CompanyID} {
		val, ok := token.Get(key)
		if !ok {
			return SSEClaims{}, jwt.ErrInvalidJWT()
		}
		s, ok := val.(string)
		if !ok || s == "" {
			return SSEClaims{}, jwt.ErrInvalidJWT()
		}
		*dst = s
	}

	return claims, nil
}
