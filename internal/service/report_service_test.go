package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/storage"
)

type mockReportRepository struct {
	reports   map[uuid.UUID]*models.Report
	createErr error
}

func newMockReportRepository() *mockReportRepository {
	return &mockReportRepository{reports: make(map[uuid.UUID]*models.Report)}
}

func (m *mockReportRepository) Create(ctx context.Context, report *models.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	report.ID = uuid.New()
	report.Status = models.ReportStatusPending
	report.ThreatLevel = models.ThreatLevelUnknown
	copied := *report
	m.reports[report.ID] = &copied
	return nil
}

func (m *mockReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockReportRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.reports {
		if r.ReporterID == reporterID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.ThreatLevel != "" && r.ThreatLevel != filter.ThreatLevel {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockReportRepository) CountPending(ctx context.Context) (int, error) {
	count := 0
	for _, r := range m.reports {
		if r.Status == models.ReportStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *mockReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, handledBy uuid.UUID, note *string) error {
	r, ok := m.reports[id]
	if !ok || r.Status != from {
		return repository.ErrReportNotFound
	}
	r.Status = to
	r.HandledBy = &handledBy
	if note != nil {
		r.HandlerNote = note
	}
	return nil
}

func (m *mockReportRepository) SaveTriage(ctx context.Context, id uuid.UUID, result models.TriageResult, at time.Time) error {
	r, ok := m.reports[id]
	if !ok {
		return repository.ErrReportNotFound
	}
	r.ThreatLevel = result.ThreatLevel
	if r.Category == models.ReportCategoryOther {
		r.Category = result.Category
	}
	r.TriageSummary = &result.Summary
	r.TriagedAt = &at
	return nil
}

type fakePhotoStore struct {
	saved   []string
	deleted []string
	err     error
}

func (f *fakePhotoStore) SaveImage(ctx context.Context, ownerID uuid.UUID, r io.Reader) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	path := ownerID.String() + "/photo.jpg"
	f.saved = append(f.saved, path)
	return path, "image/jpeg", nil
}

func (f *fakePhotoStore) Delete(ctx context.Context, relativePath string) error {
	f.deleted = append(f.deleted, relativePath)
	return nil
}

type sentEvent struct {
	to    uuid.UUID
	event string
	data  any
}

type fakeReportNotifier struct {
	userEvents  []sentEvent
	badges      []sentEvent
	adminEvents []sentEvent
}

func (f *fakeReportNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	f.userEvents = append(f.userEvents, sentEvent{to: userID, event: event, data: data})
}

func (f *fakeReportNotifier) PushStaffBadge(event string, data any) {
	f.badges = append(f.badges, sentEvent{event: event, data: data})
}

func (f *fakeReportNotifier) NotifyAdmins(ctx context.Context, event string, data any) {
	f.adminEvents = append(f.adminEvents, sentEvent{event: event, data: data})
}

type staticClassifier struct {
	result models.TriageResult
	calls  int
}

func (c *staticClassifier) ClassifyReport(ctx context.Context, title, description string) models.TriageResult {
	c.calls++
	return c.result
}

type reportFixture struct {
	service    *ReportService
	repo       *mockReportRepository
	photos     *fakePhotoStore
	notifier   *fakeReportNotifier
	classifier *staticClassifier
}

func newReportFixture(level string) *reportFixture {
	repo := newMockReportRepository()
	notifier := &fakeReportNotifier{}
	classifier := &staticClassifier{result: models.TriageResult{
		ThreatLevel: level,
		Category:    models.ReportCategoryTheft,
		Summary:     "ringkasan",
	}}

	triage := NewTriageService(repo, classifier, notifier)
	triage.spawn = func(fn func()) { fn() }
	triage.now = func() time.Time { return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC) }

	photos := &fakePhotoStore{}
	return &reportFixture{
		service:    NewReportService(repo, photos, triage, notifier),
		repo:       repo,
		photos:     photos,
		notifier:   notifier,
		classifier: classifier,
	}
}

func validReportInput() CreateReportInput {
	return CreateReportInput{
		Title:       "Motor hilang",
		Description: "Motor warga hilang dari depan rumah nomor 12",
		Location:    "Gang Melati",
	}
}

func staffClaims() *Claims {
	return &Claims{SubjectID: uuid.New(), Role: models.StaffRoleStaff, Kind: KindStaff}
}

func TestReportService_CreateTriagesInBackground(t *testing.T) {
	f := newReportFixture(models.ThreatLevelHigh)
	reporter := uuid.New()

	report, err := f.service.Create(context.Background(), reporter, validReportInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stored := f.repo.reports[report.ID]
	if stored.ThreatLevel != models.ThreatLevelHigh || stored.TriagedAt == nil {
		t.Fatalf("сообщение должно быть классифицировано, получили %+v", stored)
	}
	if stored.Category != models.ReportCategoryTheft {
		t.Fatalf("категория other должна уточняться классификатором, получили %s", stored.Category)
	}

	var triaged, pending bool
	for _, b := range f.notifier.badges {
		switch b.event {
		case EventReportTriaged:
			triaged = true
		case EventReportsPending:
			pending = true
		}
	}
	if !triaged || !pending {
		t.Fatalf("ожидали события %s и %s, получили %+v", EventReportTriaged, EventReportsPending, f.notifier.badges)
	}
	if len(f.notifier.adminEvents) != 0 {
		t.Fatalf("high не должен будить администраторов")
	}
}

func TestReportService_CriticalNotifiesAdmins(t *testing.T) {
	f := newReportFixture(models.ThreatLevelCritical)

	if _, err := f.service.Create(context.Background(), uuid.New(), validReportInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(f.notifier.adminEvents) != 1 || f.notifier.adminEvents[0].event != EventReportUrgent {
		t.Fatalf("ожидали одно срочное уведомление, получили %+v", f.notifier.adminEvents)
	}
}

func TestReportService_CreateKeepsResidentCategory(t *testing.T) {
	f := newReportFixture(models.ThreatLevelMedium)
	in := validReportInput()
	in.Category = models.ReportCategorySuspicious

	report, err := f.service.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := f.repo.reports[report.ID].Category; got != models.ReportCategorySuspicious {
		t.Fatalf("категория жителя не должна перезаписываться, получили %s", got)
	}
}

func TestReportService_CreateValidation(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)

	in := validReportInput()
	in.Description = "pendek"
	if _, err := f.service.Create(context.Background(), uuid.New(), in); !apperror.IsValidation(err) {
		t.Fatalf("короткое описание должно отклоняться, получили %v", err)
	}

	in = validReportInput()
	in.Category = "ufo"
	if _, err := f.service.Create(context.Background(), uuid.New(), in); !apperror.IsValidation(err) {
		t.Fatalf("неизвестная категория должна отклоняться, получили %v", err)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("невалидное сообщение не должно классифицироваться")
	}
}

func TestReportService_CreateWithPhoto(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	in := validReportInput()
	in.Photo = bytes.NewReader([]byte{0xFF, 0xD8, 0xFF})

	report, err := f.service.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if report.PhotoPath == nil || *report.PhotoPath != f.photos.saved[0] {
		t.Fatalf("путь к фото не сохранён")
	}
}

func TestReportService_CreateRejectsBadPhoto(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	f.photos.err = storage.ErrUnsupportedImage
	in := validReportInput()
	in.Photo = bytes.NewReader([]byte("not an image"))

	if _, err := f.service.Create(context.Background(), uuid.New(), in); !apperror.IsValidation(err) {
		t.Fatalf("ожидали ошибку валидации, получили %v", err)
	}
	if len(f.repo.reports) != 0 {
		t.Fatalf("сообщение не должно сохраняться без фото")
	}
}

func TestReportService_CreateFailureRemovesPhoto(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	f.repo.createErr = context.DeadlineExceeded
	in := validReportInput()
	in.Photo = bytes.NewReader([]byte{0xFF, 0xD8, 0xFF})

	if _, err := f.service.Create(context.Background(), uuid.New(), in); err == nil {
		t.Fatalf("ожидали ошибку")
	}
	if len(f.photos.deleted) != 1 {
		t.Fatalf("осиротевшее фото должно удаляться")
	}
}

func TestReportService_GetMineHidesForeignReports(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	owner := uuid.New()
	report, err := f.service.Create(context.Background(), owner, validReportInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.service.GetMine(context.Background(), owner, report.ID); err != nil {
		t.Fatalf("автор должен видеть своё сообщение: %v", err)
	}
	if _, err := f.service.GetMine(context.Background(), uuid.New(), report.ID); !apperror.IsNotFound(err) {
		t.Fatalf("чужое сообщение должно выглядеть как отсутствующее, получили %v", err)
	}
}

func TestReportService_StatusFlow(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	reporter := uuid.New()
	report, _ := f.service.Create(context.Background(), reporter, validReportInput())
	actor := staffClaims()

	updated, err := f.service.UpdateStatus(context.Background(), actor, report.ID, models.ReportStatusInProgress, "Petugas menuju lokasi")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.ReportStatusInProgress || *updated.HandledBy != actor.SubjectID {
		t.Fatalf("неожиданное состояние: %+v", updated)
	}

	if _, err := f.service.UpdateStatus(context.Background(), actor, report.ID, models.ReportStatusResolved, ""); err != nil {
		t.Fatalf("UpdateStatus resolved: %v", err)
	}

	_, err = f.service.UpdateStatus(context.Background(), actor, report.ID, models.ReportStatusInProgress, "")
	if appErr, ok := apperror.As(err); !ok || appErr.Code != apperror.ErrCodeInvalidTransition {
		t.Fatalf("resolved -> in_progress должен отклоняться, получили %v", err)
	}

	if len(f.notifier.userEvents) != 2 {
		t.Fatalf("автор должен получить уведомление на каждую смену статуса, получили %d", len(f.notifier.userEvents))
	}
	for _, ev := range f.notifier.userEvents {
		if ev.to != reporter || ev.event != EventReportStatus {
			t.Fatalf("неожиданное уведомление: %+v", ev)
		}
	}
}

func TestReportService_StatusRequiresStaff(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)
	report, _ := f.service.Create(context.Background(), uuid.New(), validReportInput())
	resident := &Claims{SubjectID: uuid.New(), Role: RoleUser, Kind: KindUser}

	if _, err := f.service.UpdateStatus(context.Background(), resident, report.ID, models.ReportStatusRejected, ""); !apperror.IsForbidden(err) {
		t.Fatalf("житель не может менять статус, получили %v", err)
	}
}

func TestReportService_ListFilterValidation(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)

	if _, err := f.service.List(context.Background(), models.ReportFilter{Status: "closed"}); !apperror.IsValidation(err) {
		t.Fatalf("неизвестный статус должен отклоняться, получили %v", err)
	}
	if _, err := f.service.List(context.Background(), models.ReportFilter{ThreatLevel: "extreme"}); !apperror.IsValidation(err) {
		t.Fatalf("неизвестный уровень должен отклоняться, получили %v", err)
	}
}

func TestReportService_RetriageUnknownReport(t *testing.T) {
	f := newReportFixture(models.ThreatLevelLow)

	if _, err := f.service.Retriage(context.Background(), staffClaims(), uuid.New()); !apperror.IsNotFound(err) {
		t.Fatalf("ожидали not found, получили %v", err)
	}
}
