package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/storage"
	"github.com/baronda/siskamling-backend/internal/validation"
)

// ReportRepository описывает хранилище сообщений о происшествиях.
type ReportRepository interface {
	TriageRepository
	Create(ctx context.Context, report *models.Report) error
	ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	CountPending(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, handledBy uuid.UUID, note *string) error
}

// PhotoStore сохраняет фото-доказательства.
type PhotoStore interface {
	SaveImage(ctx context.Context, ownerID uuid.UUID, r io.Reader) (string, string, error)
	Delete(ctx context.Context, relativePath string) error
}

// ReportNotifier доставляет уведомления жителю и бейджи сотрудникам.
type ReportNotifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, event string, data any)
	PushStaffBadge(event string, data any)
}

// Triager запускает классификацию сообщения.
type Triager interface {
	Triage(ctx context.Context, reportID uuid.UUID) (*models.Report, error)
	TriageAsync(reportID uuid.UUID)
}

// CreateReportInput: сообщение жителя. Photo может быть nil.
type CreateReportInput struct {
	Title       string
	Description string
	Location    string
	Category    string
	Photo       io.Reader
}

// ReportService отвечает за сообщения жителей и их обработку сотрудниками.
type ReportService struct {
	repo     ReportRepository
	photos   PhotoStore
	triage   Triager
	notifier ReportNotifier
}

// NewReportService создаёт сервис сообщений.
func NewReportService(repo ReportRepository, photos PhotoStore, triage Triager, notifier ReportNotifier) *ReportService {
	return &ReportService{repo: repo, photos: photos, triage: triage, notifier: notifier}
}

var errInvalidReportTransition = apperror.New(apperror.ErrCodeInvalidTransition, "Perubahan status laporan tidak diizinkan.")

// Create сохраняет сообщение и запускает фоновую классификацию.
func (s *ReportService) Create(ctx context.Context, reporterID uuid.UUID, in CreateReportInput) (*models.Report, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	location := strings.TrimSpace(in.Location)
	if err := validation.ValidateReport(title, description, location); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = models.ReportCategoryOther
	}
	if _, ok := models.ValidReportCategories[category]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "Kategori laporan tidak valid.")
	}

	report := &models.Report{
		ReporterID:  reporterID,
		Title:       title,
		Description: description,
		Location:    location,
		Category:    category,
	}

	if in.Photo != nil {
		path, err := s.savePhoto(ctx, reporterID, in.Photo)
		if err != nil {
			return nil, err
		}
		report.PhotoPath = &path
	}

	if err := s.repo.Create(ctx, report); err != nil {
		if report.PhotoPath != nil {
			if delErr := s.photos.Delete(ctx, *report.PhotoPath); delErr != nil {
				logger.Entry(logrus.Fields{"path": *report.PhotoPath, "error": delErr}).Warn("report service: не удалось удалить осиротевшее фото")
			}
		}
		return nil, err
	}

	logger.Entry(logrus.Fields{"report_id": report.ID, "reporter_id": reporterID}).Info("report service: новое сообщение")

	s.triage.TriageAsync(report.ID)
	s.pushPendingCount(ctx)
	return report, nil
}

func (s *ReportService) savePhoto(ctx context.Context, ownerID uuid.UUID, photo io.Reader) (string, error) {
	path, _, err := s.photos.SaveImage(ctx, ownerID, photo)
	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, storage.ErrFileTooLarge):
		return "", apperror.Wrap(err, apperror.ErrCodeValidation, "Ukuran foto terlalu besar.")
	case errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, storage.ErrEmptyFile):
		return "", apperror.Wrap(err, apperror.ErrCodeValidation, "Foto harus berformat JPEG, PNG, atau WebP.")
	default:
		return "", err
	}
}

// ListMine возвращает сообщения жителя.
func (s *ReportService) ListMine(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByReporter(ctx, reporterID, limit, offset)
}

// GetMine возвращает сообщение, только если его автор reporterID.
func (s *ReportService) GetMine(ctx context.Context, reporterID, id uuid.UUID) (*models.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != reporterID {
		return nil, apperror.ErrReportNotFound
	}
	return report, nil
}

// List возвращает сообщения для сотрудников.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	if filter.Status != "" && !isReportStatus(filter.Status) {
		return nil, apperror.New(apperror.ErrCodeValidation, "Status laporan tidak valid.")
	}
	if filter.ThreatLevel != "" {
		if _, ok := models.ValidThreatLevels[filter.ThreatLevel]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "Tingkat ancaman tidak valid.")
		}
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.repo.List(ctx, filter)
}

// Get возвращает сообщение по ID.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, apperror.ErrReportNotFound
	}
	return report, err
}

// UpdateStatus меняет статус сообщения и уведомляет автора.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *Claims, id uuid.UUID, to, note string) (*models.Report, error) {
	if actor == nil || actor.Kind != KindStaff {
		return nil, apperror.ErrForbidden
	}

	note = strings.TrimSpace(note)
	if err := validation.ValidateLength("catatan", note, 0, validation.MaxNoteLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionReport(report.Status, to) {
		return nil, errInvalidReportTransition
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	// Обновление условное: если статус успели сменить параллельно, строка не найдётся.
	if err := s.repo.UpdateStatus(ctx, report.ID, report.Status, to, actor.SubjectID, notePtr); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, errInvalidReportTransition
		}
		return nil, err
	}

	report.Status = to
	report.HandledBy = &actor.SubjectID
	if notePtr != nil {
		report.HandlerNote = notePtr
	}

	s.notifier.NotifyUser(ctx, report.ReporterID, EventReportStatus, map[string]any{
		"report_id": report.ID,
		"title":     report.Title,
		"status":    to,
		"note":      note,
	})
	s.pushPendingCount(ctx)

	return report, nil
}

// Retriage повторно классифицирует сообщение по запросу сотрудника.
func (s *ReportService) Retriage(ctx context.Context, actor *Claims, id uuid.UUID) (*models.Report, error) {
	if actor == nil || actor.Kind != KindStaff {
		return nil, apperror.ErrForbidden
	}
	return s.triage.Triage(ctx, id)
}

func (s *ReportService) pushPendingCount(ctx context.Context) {
	count, err := s.repo.CountPending(ctx)
	if err != nil {
		logger.Entry(logrus.Fields{"error": err}).Warn("report service: не удалось посчитать новые сообщения")
		return
	}
	s.notifier.PushStaffBadge(EventReportsPending, map[string]int{"count": count})
}

func isReportStatus(status string) bool {
	switch status {
	case models.ReportStatusPending, models.ReportStatusInProgress, models.ReportStatusResolved, models.ReportStatusRejected:
		return true
	}
	return false
}

// normalizePage приводит параметры пагинации к допустимым значениям.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
