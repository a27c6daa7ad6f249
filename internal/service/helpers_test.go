package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chuan-dai/internal/cache"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/pkg/jwt"
	"chuan-dai/pkg/util"
)

// newTestDB 每个测试使用独立的内存数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureSender 记录最近发送的验证码
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newCaptureSender() *captureSender {
	return &captureSender{codes: make(map[string]string)}
}

func (s *captureSender) Send(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.codes[phone] = code
	return nil
}

func (s *captureSender) last(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

type notification struct {
	userID  int64
	msgType string
	payload interface{}
}

// recordingNotifier 记录所有通知
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyUser(userID int64, msgType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID: userID, msgType: msgType, payload: payload})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type publishedEvent struct {
	routingKey string
	payload    interface{}
}

// recordingPublisher 记录所有后厨事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, payload: payload})
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.routingKey)
	}
	return keys
}

// memStorage 记录写入次数的内存对象存储
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.objects[key] = data
	return nil
}

func (s *memStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStorage) URL(key string) string {
	return "https://cdn.example.com/" + key
}

var errStorageDown = errors.New("storage down")

// createUser 直接写入一个用户
func createUser(t *testing.T, db *gorm.DB, account, password string) *model.User {
	t.Helper()
	hash, err := util.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &model.User{Account: account, PasswordHash: hash, Status: 1}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// createDish 直接写入一道菜
func createDish(t *testing.T, db *gorm.DB, name, price, category string) *model.Dish {
	t.Helper()
	dish := &model.Dish{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Category:    category,
		IsAvailable: true,
	}
	if err := db.Create(dish).Error; err != nil {
		t.Fatalf("Failed to create dish: %v", err)
	}
	return dish
}

type authFixture struct {
	db      *gorm.DB
	clock   *fakeClock
	store   *cache.MemoryStore
	sender  *captureSender
	otp     *OTPService
	session *SessionService
	auth    *AuthService
	users   *repository.UserRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()

	store := cache.NewMemoryStore()
	store.SetClock(clock.Now)

	sender := newCaptureSender()
	otp := NewOTPService(store, sender, 5*time.Minute, time.Minute)
	otp.now = clock.Now

	userRepo := repository.NewUserRepository(db)
	sessions := NewSessionService(repository.NewSessionRepository(db), 7*24*time.Hour)
	sessions.now = clock.Now

	jwtService := jwt.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, 24*time.Hour)
	auth := NewAuthService(userRepo, sessions, otp, store, jwtService)
	auth.now = clock.Now

	return &authFixture{
		db:      db,
		clock:   clock,
		store:   store,
		sender:  sender,
		otp:     otp,
		session: sessions,
		auth:    auth,
		users:   userRepo,
	}
}
