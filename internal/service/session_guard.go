package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/repository"
)

// sessionStateTTL ограничивает, сколько живёт закешированный статус субъекта.
// Приостановка и отключение сбрасывают запись сразу через Revoke.
const sessionStateTTL = 15 * time.Second

// ResidentLookup читает жителя по идентификатору.
type ResidentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionRevoker сбрасывает закешированный статус субъекта.
type SessionRevoker interface {
	Revoke(kind string, id uuid.UUID)
}

type subjectState struct {
	active bool
	role   string
}

// SessionGuard проверяет, что субъект токена всё ещё имеет доступ:
// сотрудник активен (или срок приостановки истёк), житель не отключён, роль не изменилась.
type SessionGuard struct {
	staff StaffLookup
	users ResidentLookup
	cache *CacheService
	now   func() time.Time
}

// NewSessionGuard создаёт проверку сессий. cache может быть nil.
func NewSessionGuard(staff StaffLookup, users ResidentLookup, cache *CacheService) *SessionGuard {
	return &SessionGuard{staff: staff, users: users, cache: cache, now: time.Now}
}

// Active сообщает, можно ли обслуживать запрос с этими claims.
func (g *SessionGuard) Active(ctx context.Context, claims *Claims) (bool, error) {
	if claims == nil {
		return false, nil
	}

	state, err := cached(g.cache, sessionKey(claims.Kind, claims.SubjectID), sessionStateTTL, func() (subjectState, error) {
		return g.load(ctx, claims.Kind, claims.SubjectID)
	})
	if err != nil {
		return false, err
	}
	return state.active && state.role == claims.Role, nil
}

// Revoke сбрасывает кеш, чтобы следующий запрос перечитал статус.
func (g *SessionGuard) Revoke(kind string, id uuid.UUID) {
	if g.cache != nil {
		g.cache.Delete(sessionKey(kind, id))
	}
}

func (g *SessionGuard) load(ctx context.Context, kind string, id uuid.UUID) (subjectState, error) {
	switch kind {
	case KindStaff:
		staff, err := g.staff.GetByID(ctx, id)
		if errors.Is(err, repository.ErrStaffNotFound) {
			return subjectState{}, nil
		}
		if err != nil {
			return subjectState{}, err
		}
		active := staff.Status == models.StaffStatusActive ||
			(staff.Status == models.StaffStatusSuspended && !staff.SuspendedAt(g.now()))
		return subjectState{active: active, role: staff.Role}, nil
	case KindUser:
		user, err := g.users.GetByID(ctx, id)
		if errors.Is(err, repository.ErrUserNotFound) {
			return subjectState{}, nil
		}
		if err != nil {
			return subjectState{}, err
		}
		return subjectState{active: user.IsActive, role: RoleUser}, nil
	default:
		return subjectState{}, nil
	}
}

func sessionKey(kind string, id uuid.UUID) string {
	return "session:" + kind + ":" + id.String()
}
