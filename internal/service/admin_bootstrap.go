package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/validation"
)

// AdminBootstrap: данные первого администратора из конфигурации.
type AdminBootstrap struct {
	Name  string
	Email string
	// AccessCode необязателен. Пустой код генерируется и приходит письмом.
	AccessCode string
}

// BootstrapAdmin создаёт активного администратора, если в системе нет ни одного.
// Повторный запуск при живом администраторе ничего не меняет.
// Если email уже принадлежит сотруднику, он повышается до администратора.
func (s *StaffService) BootstrapAdmin(ctx context.Context, in AdminBootstrap) (*models.Staff, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, nil
	}

	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if len(admins) > 0 {
		return nil, nil
	}

	email, err := mail.ParseAddress(in.Email)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "ADMIN_EMAIL tidak valid.")
	}
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	code := in.AccessCode
	generated := code == ""
	if generated {
		if code, err = generateAccessCode(); err != nil {
			return nil, fmt.Errorf("staff service: generate access code: %w", err)
		}
	} else if err := validation.ValidateAccessCode(code); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("staff service: hash access code: %w", err)
	}

	// Сгенерированный код известен только из письма, поэтому без письма запись не создаём.
	if err := s.mailer.SendAccessCode(ctx, email, name, code, true); err != nil {
		if generated {
			return nil, apperror.Wrap(err, apperror.ErrCodeUnavailable, apperror.ErrMailUnavailable.Message)
		}
		logger.Entry(logrus.Fields{"email": email, "error": err}).Warn("staff service: письмо первому администратору не отправлено")
	}

	admin := &models.Staff{
		Name:   name,
		Email:  email.String(),
		Role:   models.StaffRoleAdmin,
		Status: models.StaffStatusActive,
	}
	if err := s.repo.UpsertAdmin(ctx, admin, string(hash)); err != nil {
		return nil, err
	}
	s.revokeSessions(admin.ID)

	s.audit.Record(ctx, admin.ID, models.AdminActionStaffBootstrap, "staff", &admin.ID, map[string]any{"email": admin.Email})
	logger.Entry(logrus.Fields{"staff_id": admin.ID}).Info("staff service: создан первый администратор")
	return admin, nil
}
