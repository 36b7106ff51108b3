package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roomchat-backend/config"
	"roomchat-backend/models"
	"roomchat-backend/repository"
)

// fakeBus records every publish so tests can assert exact fan-out.
type fakeBus struct {
	mu       sync.Mutex
	messages []busRecord
	members  map[string][]string
}

type busRecord struct {
	channel string
	payload any
}

func newFakeBus() *fakeBus {
	return &fakeBus{members: make(map[string][]string)}
}

func (b *fakeBus) Publish(channel string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, busRecord{channel: channel, payload: payload})
}

func (b *fakeBus) ListMembers(channel string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.members[channel]
}

func (b *fakeBus) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.messages {
		out = append(out, m.channel)
	}
	return out
}

type fixture struct {
	users   *repository.GormUserRepo
	rooms   *repository.GormRoomRepo
	msgs    *repository.GormMessageRepo
	guard   *AuthzGuard
	authSvc *AuthService
	msgSvc  *MessageService
	roomSvc *RoomService
	bus     *fakeBus
	db      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTExpiry:        1,
		MaxMessageLength: 1000,
	}

	f := &fixture{
		users: repository.NewGormUserRepo(db),
		rooms: repository.NewGormRoomRepo(db),
		msgs:  repository.NewGormMessageRepo(db),
		bus:   newFakeBus(),
		db:    db,
	}
	f.guard = NewAuthzGuard(f.users)
	f.authSvc = NewAuthService(f.users, cfg)
	f.msgSvc = NewMessageService(f.msgs, f.rooms, f.users, f.guard, f.bus, cfg)
	f.roomSvc = NewRoomService(f.rooms, f.guard, f.bus)
	return f
}

func (f *fixture) user(t *testing.T, name string) (*models.User, *Identity) {
	t.Helper()
	u, err := f.users.Create(name, "hash")
	require.NoError(t, err)
	return u, &Identity{UserID: u.ID, Username: u.Username}
}

func (f *fixture) admin(t *testing.T, name string) (*models.User, *Identity) {
	t.Helper()
	u, err := f.users.Create(name, "hash")
	require.NoError(t, err)
	require.NoError(t, f.users.AssignRole(u.ID, models.RoleAdmin))
	return u, &Identity{UserID: u.ID, Username: u.Username, Roles: []string{models.RoleAdmin}}
}

func (f *fixture) deactivate(t *testing.T, u *models.User) {
	t.Helper()
	require.NoError(t, f.db.Model(u).Update("is_active", false).Error)
}

func (f *fixture) countMessages(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&n).Error)
	return n
}
