package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/goroutine"
	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
)

// События, которые получают сотрудники по WebSocket.
const (
	EventReportTriaged  = "report.triaged"
	EventReportUrgent   = "report.urgent"
	EventReportsPending = "reports.pending"
	EventReportStatus   = "report.status"
)

// triageTimeout ограничивает фоновую классификацию, если модель зависла.
const triageTimeout = 45 * time.Second

// TriageRepository: часть хранилища сообщений, нужная для классификации.
type TriageRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SaveTriage(ctx context.Context, id uuid.UUID, result models.TriageResult, at time.Time) error
}

// ReportClassifier оценивает уровень угрозы. Реализация сама падает в эвристику.
type ReportClassifier interface {
	ClassifyReport(ctx context.Context, title, description string) models.TriageResult
}

// StaffBroadcaster рассылает события сотрудникам.
type StaffBroadcaster interface {
	PushStaffBadge(event string, data any)
	NotifyAdmins(ctx context.Context, event string, data any)
}

// TriageService классифицирует сообщения жителей и оповещает сотрудников.
type TriageService struct {
	repo       TriageRepository
	classifier ReportClassifier
	notifier   StaffBroadcaster
	now        func() time.Time
	spawn      func(fn func())
}

// NewTriageService создаёт сервис классификации.
func NewTriageService(repo TriageRepository, classifier ReportClassifier, notifier StaffBroadcaster) *TriageService {
	return &TriageService{
		repo:       repo,
		classifier: classifier,
		notifier:   notifier,
		now:        time.Now,
		spawn:      goroutine.SafeGo,
	}
}

// Triage классифицирует сообщение и сохраняет результат.
func (s *TriageService) Triage(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, reportID)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, apperror.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	result := s.classifier.ClassifyReport(ctx, report.Title, report.Description)
	at := s.now()
	if err := s.repo.SaveTriage(ctx, report.ID, result, at); err != nil {
		return nil, err
	}

	report.ThreatLevel = result.ThreatLevel
	if report.Category == models.ReportCategoryOther {
		report.Category = result.Category
	}
	report.TriageSummary = &result.Summary
	report.TriagedAt = &at

	logger.Entry(logrus.Fields{
		"report_id":    report.ID,
		"threat_level": result.ThreatLevel,
	}).Info("triage service: сообщение классифицировано")

	s.notifier.PushStaffBadge(EventReportTriaged, report)
	if result.ThreatLevel == models.ThreatLevelCritical {
		s.notifier.NotifyAdmins(ctx, EventReportUrgent, map[string]any{
			"report_id": report.ID,
			"title":     report.Title,
			"summary":   result.Summary,
		})
	}

	return report, nil
}

// TriageAsync запускает классификацию в фоне. Контекст запроса не используется:
// ответ жителю уже отправлен к моменту, когда модель ответит.
func (s *TriageService) TriageAsync(reportID uuid.UUID) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), triageTimeout)
		defer cancel()

		if _, err := s.Triage(ctx, reportID); err != nil {
			logger.Entry(logrus.Fields{"report_id": reportID, "error": err}).Error("triage service: фоновая классификация не удалась")
		}
	})
}
