package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Виды субъектов токена.
const (
	KindUser  = "user"
	KindStaff = "staff"

	RoleUser = "user"
)

// Session: выданный токен доступа.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Kind        string    `json:"kind"`
	Role        string    `json:"role"`
}

// Claims: проверенные данные субъекта из токена.
type Claims struct {
	SubjectID uuid.UUID
	Role      string
	Kind      string
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate выпускает токен для жителя или сотрудника.
func (m *TokenManager) Generate(subjectID uuid.UUID, role, kind string) (*Session, error) {
	now := m.now()
	exp := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"sub":  subjectID.String(),
		"role": role,
		"kind": kind,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("token manager: sign %w", err)
	}

	return &Session{AccessToken: token, ExpiresAt: exp, Kind: kind, Role: role}, nil
}

// ParseAccess проверяет подпись и срок токена и извлекает субъекта.
func (m *TokenManager) ParseAccess(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	subjectID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	role, _ := claims["role"].(string)
	kind, _ := claims["kind"].(string)
	if kind != KindUser && kind != KindStaff {
		return nil, errors.New("token manager: unknown subject kind")
	}

	return &Claims{SubjectID: subjectID, Role: role, Kind: kind}, nil
}
