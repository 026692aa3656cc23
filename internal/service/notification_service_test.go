package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/ws"
)

// mockNotificationRepository хранит уведомления в памяти.
type mockNotificationRepository struct {
	items     map[uuid.UUID]*models.Notification
	createErr error
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{items: make(map[uuid.UUID]*models.Notification)}
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = uuid.New()
	copied := *n
	m.items[n.ID] = &copied
	return nil
}

func (m *mockNotificationRepository) List(ctx context.Context, to repository.Recipient, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.items {
		if n.RecipientID != to.ID || n.RecipientKind != to.Kind {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *mockNotificationRepository) owned(to repository.Recipient, id uuid.UUID) (*models.Notification, bool) {
	n, ok := m.items[id]
	if !ok || n.RecipientID != to.ID || n.RecipientKind != to.Kind {
		return nil, false
	}
	return n, true
}

func (m *mockNotificationRepository) MarkAsRead(ctx context.Context, to repository.Recipient, id uuid.UUID) error {
	n, ok := m.owned(to, id)
	if !ok {
		return repository.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *mockNotificationRepository) MarkAllAsRead(ctx context.Context, to repository.Recipient) error {
	for _, n := range m.items {
		if n.RecipientID == to.ID && n.RecipientKind == to.Kind {
			n.IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepository) Delete(ctx context.Context, to repository.Recipient, id uuid.UUID) error {
	if _, ok := m.owned(to, id); !ok {
		return repository.ErrNotificationNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, to repository.Recipient) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.RecipientID == to.ID && n.RecipientKind == to.Kind && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type pushedEvent struct {
	to        ws.Subject
	kind      string
	persisted bool
}

// recordingPusher проверяет, что уведомление уже сохранено в момент отправки.
type recordingPusher struct {
	repo   *mockNotificationRepository
	pushed []pushedEvent
	err    error
}

func (p *recordingPusher) SendTo(to ws.Subject, event string, data any) error {
	persisted := false
	if n, ok := data.(*models.Notification); ok {
		_, persisted = p.repo.items[n.ID]
	}
	p.pushed = append(p.pushed, pushedEvent{to: to, persisted: persisted})
	return p.err
}

func (p *recordingPusher) BroadcastKind(kind, role, event string, data any) error {
	p.pushed = append(p.pushed, pushedEvent{kind: kind})
	return p.err
}

type staticAdminDirectory struct {
	admins []models.Staff
	err    error
}

func (d *staticAdminDirectory) ListAdmins(ctx context.Context) ([]models.Staff, error) {
	return d.admins, d.err
}

func newNotificationFixture(admins ...models.Staff) (*NotificationService, *mockNotificationRepository, *recordingPusher, *staticAdminDirectory) {
	repo := newMockNotificationRepository()
	pusher := &recordingPusher{repo: repo}
	directory := &staticAdminDirectory{admins: admins}
	return NewNotificationService(repo, pusher, directory), repo, pusher, directory
}

func TestNotificationService_NotifyPersistsBeforePush(t *testing.T) {
	svc, repo, pusher, _ := newNotificationFixture()
	to := repository.Recipient{ID: uuid.New(), Kind: models.RecipientKindUser}

	n, err := svc.Notify(context.Background(), to, "report.status_changed", map[string]string{"status": "resolved"})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if _, ok := repo.items[n.ID]; !ok {
		t.Fatal("notification must be stored")
	}

	if len(pusher.pushed) != 1 {
		t.Fatalf("expected one push, got %d", len(pusher.pushed))
	}
	if !pusher.pushed[0].persisted {
		t.Fatal("notification must be stored before it is pushed")
	}
	if pusher.pushed[0].to != (ws.Subject{ID: to.ID, Kind: to.Kind}) {
		t.Fatalf("pushed to wrong subject: %+v", pusher.pushed[0].to)
	}

	var payload struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload.Event != "report.status_changed" || payload.Data["status"] != "resolved" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestNotificationService_PushFailureDoesNotFail(t *testing.T) {
	svc, repo, pusher, _ := newNotificationFixture()
	pusher.err = ws.ErrHubStopped

	_, err := svc.Notify(context.Background(), repository.Recipient{ID: uuid.New(), Kind: models.RecipientKindStaff}, "schedule.assigned", nil)
	if err != nil {
		t.Fatalf("push failure must not fail Notify, got %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected stored notification, got %d", len(repo.items))
	}
}

func TestNotificationService_StoreFailureSkipsPush(t *testing.T) {
	svc, repo, pusher, _ := newNotificationFixture()
	repo.createErr = errors.New("db down")

	if _, err := svc.Notify(context.Background(), repository.Recipient{ID: uuid.New(), Kind: models.RecipientKindUser}, "due.recorded", nil); err == nil {
		t.Fatal("expected error when store fails")
	}
	if len(pusher.pushed) != 0 {
		t.Fatalf("nothing must be pushed without a stored notification, got %d", len(pusher.pushed))
	}
}

func TestNotificationService_NotifyAdminsFansOut(t *testing.T) {
	first := models.Staff{ID: uuid.New(), Role: models.StaffRoleAdmin}
	second := models.Staff{ID: uuid.New(), Role: models.StaffRoleAdmin}
	svc, repo, pusher, _ := newNotificationFixture(first, second)

	svc.NotifyAdmins(context.Background(), "staff.applied", map[string]string{"name": "Budi"})

	if len(repo.items) != 2 || len(pusher.pushed) != 2 {
		t.Fatalf("expected one notification per admin, got %d stored and %d pushed", len(repo.items), len(pusher.pushed))
	}
	for _, admin := range []models.Staff{first, second} {
		to := repository.Recipient{ID: admin.ID, Kind: models.RecipientKindStaff}
		if count, _ := repo.CountUnread(context.Background(), to); count != 1 {
			t.Fatalf("admin %s expected 1 unread, got %d", admin.ID, count)
		}
	}
}

func TestNotificationService_NotifyAdminsDirectoryFailure(t *testing.T) {
	svc, repo, _, directory := newNotificationFixture()
	directory.err = errors.New("db down")

	svc.NotifyAdmins(context.Background(), "report.critical", nil)
	if len(repo.items) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(repo.items))
	}
}

func TestNotificationService_BroadcastDoesNotPersist(t *testing.T) {
	svc, repo, pusher, _ := newNotificationFixture()

	svc.PushStaffBadge("reports.pending_count", 4)
	if len(repo.items) != 0 {
		t.Fatal("badges must not be stored")
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0].kind != models.RecipientKindStaff {
		t.Fatalf("expected staff broadcast, got %+v", pusher.pushed)
	}
}

func TestNotificationService_ReadAndDeleteAreScopedToRecipient(t *testing.T) {
	svc, _, _, _ := newNotificationFixture()
	ctx := context.Background()
	owner := repository.Recipient{ID: uuid.New(), Kind: models.RecipientKindUser}
	// Тот же идентификатор, но другой вид субъекта.
	other := repository.Recipient{ID: owner.ID, Kind: models.RecipientKindStaff}

	n, err := svc.Notify(ctx, owner, "announcement.new", nil)
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if err := svc.MarkAsRead(ctx, other, n.ID); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found for other recipient, got %v", err)
	}
	if err := svc.MarkAsRead(ctx, owner, n.ID); err != nil {
		t.Fatalf("MarkAsRead returned error: %v", err)
	}
	if count, _ := svc.CountUnread(ctx, owner); count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}

	if err := svc.DeleteNotification(ctx, other, n.ID); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found for other recipient, got %v", err)
	}
	if err := svc.DeleteNotification(ctx, owner, n.ID); err != nil {
		t.Fatalf("DeleteNotification returned error: %v", err)
	}
	list, _ := svc.ListNotifications(ctx, owner, 0, 0, false)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}
