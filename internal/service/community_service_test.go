package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
)

// mockCommunityRepository реализует CommunityRepository и считает чтения списков.
type mockCommunityRepository struct {
	announcements map[uuid.UUID]*models.Announcement
	contacts      map[uuid.UUID]*models.EmergencyContact
	settings      map[string]*models.AppSetting

	contactReads  int
	settingsReads int
}

func newMockCommunityRepository() *mockCommunityRepository {
	return &mockCommunityRepository{
		announcements: make(map[uuid.UUID]*models.Announcement),
		contacts:      make(map[uuid.UUID]*models.EmergencyContact),
		settings:      make(map[string]*models.AppSetting),
	}
}

func (m *mockCommunityRepository) ListAnnouncements(ctx context.Context, limit, offset int) ([]models.Announcement, error) {
	var out []models.Announcement
	for _, a := range m.announcements {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockCommunityRepository) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	a.ID = uuid.New()
	copied := *a
	m.announcements[a.ID] = &copied
	return nil
}

func (m *mockCommunityRepository) UpdateAnnouncement(ctx context.Context, a *models.Announcement) error {
	if _, ok := m.announcements[a.ID]; !ok {
		return repository.ErrAnnouncementNotFound
	}
	copied := *a
	m.announcements[a.ID] = &copied
	return nil
}

func (m *mockCommunityRepository) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.announcements[id]; !ok {
		return repository.ErrAnnouncementNotFound
	}
	delete(m.announcements, id)
	return nil
}

func (m *mockCommunityRepository) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	m.contactReads++
	var out []models.EmergencyContact
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCommunityRepository) CreateContact(ctx context.Context, c *models.EmergencyContact) error {
	c.ID = uuid.New()
	copied := *c
	m.contacts[c.ID] = &copied
	return nil
}

func (m *mockCommunityRepository) UpdateContact(ctx context.Context, c *models.EmergencyContact) error {
	if _, ok := m.contacts[c.ID]; !ok {
		return repository.ErrContactNotFound
	}
	copied := *c
	m.contacts[c.ID] = &copied
	return nil
}

func (m *mockCommunityRepository) DeleteContact(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.contacts[id]; !ok {
		return repository.ErrContactNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockCommunityRepository) ListSettings(ctx context.Context) ([]models.AppSetting, error) {
	m.settingsReads++
	var out []models.AppSetting
	for _, s := range m.settings {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockCommunityRepository) GetSetting(ctx context.Context, key string) (*models.AppSetting, error) {
	s, ok := m.settings[key]
	if !ok {
		return nil, repository.ErrSettingNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockCommunityRepository) UpsertSetting(ctx context.Context, s *models.AppSetting) error {
	copied := *s
	m.settings[s.Key] = &copied
	return nil
}

type broadcastEvent struct {
	kind  string
	event string
}

type fakeBroadcaster struct {
	events []broadcastEvent
}

func (f *fakeBroadcaster) Broadcast(kind, event string, data any) {
	f.events = append(f.events, broadcastEvent{kind: kind, event: event})
}

type communityFixture struct {
	svc         *CommunityService
	repo        *mockCommunityRepository
	broadcaster *fakeBroadcaster
	audit       *fakeAudit
	admin       *Claims
}

func newCommunityFixture(t *testing.T) *communityFixture {
	repo := newMockCommunityRepository()
	broadcaster := &fakeBroadcaster{}
	audit := &fakeAudit{}
	svc := NewCommunityService(repo, broadcaster, audit)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.SetCache(NewCacheService(ctx))

	return &communityFixture{
		svc: svc, repo: repo, broadcaster: broadcaster, audit: audit,
		admin: &Claims{SubjectID: uuid.New(), Role: models.StaffRoleAdmin, Kind: KindStaff},
	}
}

func TestCommunityService_CreateAnnouncementBroadcastsToEveryone(t *testing.T) {
	f := newCommunityFixture(t)

	a, err := f.svc.CreateAnnouncement(context.Background(), f.admin, AnnouncementInput{
		Title: "Kerja bakti", Body: "Minggu pagi jam 7 di pos ronda.", Pinned: true,
	})
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	if a.AuthorID != f.admin.SubjectID {
		t.Fatalf("author must be the admin")
	}

	kinds := map[string]bool{}
	for _, e := range f.broadcaster.events {
		if e.event == EventAnnouncementNew {
			kinds[e.kind] = true
		}
	}
	if !kinds[models.RecipientKindUser] || !kinds[models.RecipientKindStaff] {
		t.Fatalf("announcement must reach residents and staff, got %v", f.broadcaster.events)
	}
}

func TestCommunityService_AnnouncementValidation(t *testing.T) {
	f := newCommunityFixture(t)
	_, err := f.svc.CreateAnnouncement(context.Background(), f.admin, AnnouncementInput{Title: "Hi", Body: "isi"})
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for short title, got %v", err)
	}
}

func TestCommunityService_AdminOnlyWrites(t *testing.T) {
	f := newCommunityFixture(t)
	resident := &Claims{SubjectID: uuid.New(), Role: RoleUser, Kind: KindUser}
	ctx := context.Background()

	if _, err := f.svc.CreateAnnouncement(ctx, resident, AnnouncementInput{Title: "Judul", Body: "isi"}); !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.CreateContact(ctx, resident, ContactInput{Name: "Polisi", Phone: "110"}); !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.UpsertSetting(ctx, resident, "app_name", "x"); !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.ListSettings(ctx, resident); !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCommunityService_ContactAcceptsShortEmergencyNumber(t *testing.T) {
	f := newCommunityFixture(t)

	c, err := f.svc.CreateContact(context.Background(), f.admin, ContactInput{Name: "Polisi", Phone: "110"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if c.Category != "umum" {
		t.Fatalf("expected default category, got %q", c.Category)
	}
}

func TestCommunityService_ContactsCachedUntilChanged(t *testing.T) {
	f := newCommunityFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateContact(ctx, f.admin, ContactInput{Name: "Pemadam", Phone: "113"}); err != nil {
		t.Fatalf("create contact: %v", err)
	}

	for i := 0; i < 3; i++ {
		contacts, err := f.svc.ListContacts(ctx)
		if err != nil {
			t.Fatalf("list contacts: %v", err)
		}
		if len(contacts) != 1 {
			t.Fatalf("expected 1 contact, got %d", len(contacts))
		}
	}
	if f.repo.contactReads != 1 {
		t.Fatalf("expected one repository read, got %d", f.repo.contactReads)
	}

	if _, err := f.svc.CreateContact(ctx, f.admin, ContactInput{Name: "Ambulans", Phone: "118"}); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	contacts, _ := f.svc.ListContacts(ctx)
	if len(contacts) != 2 {
		t.Fatalf("cache must be invalidated after change, got %d contacts", len(contacts))
	}
}

func TestCommunityService_PublicSettingsWhitelist(t *testing.T) {
	f := newCommunityFixture(t)
	ctx := context.Background()

	if _, err := f.svc.UpsertSetting(ctx, f.admin, "app_name", "Baronda RW 05"); err != nil {
		t.Fatalf("upsert public: %v", err)
	}
	if _, err := f.svc.UpsertSetting(ctx, f.admin, "treasurer_phone", "081234567890"); err != nil {
		t.Fatalf("upsert private: %v", err)
	}

	public, err := f.svc.PublicSettings(ctx)
	if err != nil {
		t.Fatalf("public settings: %v", err)
	}
	if public["app_name"] != "Baronda RW 05" {
		t.Fatalf("expected public app_name, got %v", public)
	}
	if _, leaked := public["treasurer_phone"]; leaked {
		t.Fatal("private setting leaked into public settings")
	}

	// Смена публичной настройки сбрасывает кеш и рассылается жителям.
	if _, err := f.svc.UpsertSetting(ctx, f.admin, "app_name", "Baronda"); err != nil {
		t.Fatalf("upsert public: %v", err)
	}
	public, _ = f.svc.PublicSettings(ctx)
	if public["app_name"] != "Baronda" {
		t.Fatalf("expected refreshed value, got %v", public)
	}

	changed := 0
	for _, e := range f.broadcaster.events {
		if e.event == EventSettingsChanged {
			changed++
		}
	}
	if changed != 2 {
		t.Fatalf("expected 2 settings.changed broadcasts, got %d", changed)
	}
}

func TestCommunityService_SettingKeyValidation(t *testing.T) {
	f := newCommunityFixture(t)
	if _, err := f.svc.UpsertSetting(context.Background(), f.admin, "Bad Key!", "x"); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.GetSetting(context.Background(), f.admin, "missing_key"); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommunityService_DeleteUnknown(t *testing.T) {
	f := newCommunityFixture(t)
	if err := f.svc.DeleteAnnouncement(context.Background(), f.admin, uuid.New()); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.DeleteContact(context.Background(), f.admin, uuid.New()); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCacheService_ExpiresEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := NewCacheService(ctx)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("k", 1, time.Minute)
	if v, ok := cache.Get("k"); !ok || v.(int) != 1 {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expired entry must not be returned")
	}
	cache.evictExpired()
	if len(cache.cache) != 0 {
		t.Fatal("expired entry must be evicted")
	}
}
