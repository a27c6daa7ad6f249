package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chuan-dai/internal/cache"
	"chuan-dai/internal/config"
	"chuan-dai/internal/middleware"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/jwt"
	"chuan-dai/pkg/validate"
)

const testCookie = "auth_session"

func init() {
	gin.SetMode(gin.TestMode)
	validate.Setup()
}

// apiResponse 统一响应结构，data 延迟解析
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// memStorage 内存对象存储
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (s *memStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
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

type testEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	storage *memStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:h_%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	store := cache.NewMemoryStore()
	userRepo := repository.NewUserRepository(db)
	dishRepo := repository.NewDishRepository(db)
	gatheringRepo := repository.NewGatheringRepository(db)
	jwtService := jwt.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, 24*time.Hour)

	sessions := service.NewSessionService(repository.NewSessionRepository(db), 7*24*time.Hour)
	otp := service.NewOTPService(store, service.LogSMSSender{}, 5*time.Minute, time.Minute)
	authService := service.NewAuthService(userRepo, sessions, otp, store, jwtService)
	objects := &memStorage{objects: make(map[string][]byte)}
	photoService := service.NewPhotoService(
		repository.NewPhotoRepository(db), userRepo, gatheringRepo, objects, nil,
		config.StorageConfig{BasePath: "chuan-dai/photos", MaxImageBytes: 1 << 20},
	)

	auth := middleware.NewAuthenticator(sessions, jwtService, authService, testCookie, false)

	router := gin.New()
	RegisterRoutes(router, &Handlers{
		Auth:      NewAuthHandler(authService, auth),
		User:      NewUserHandler(service.NewUserService(userRepo, sessions)),
		Dish:      NewDishHandler(service.NewDishService(dishRepo)),
		Order:     NewOrderHandler(service.NewOrderService(repository.NewOrderRepository(db), dishRepo, userRepo, gatheringRepo, nil, nil)),
		Photo:     NewPhotoHandler(photoService),
		Gathering: NewGatheringHandler(service.NewGatheringService(gatheringRepo)),
		Upload:    NewUploadHandler(photoService, auth),
	}, auth)

	return &testEnv{db: db, router: router, storage: objects}
}

// request 发送 JSON 请求，cookie 为空表示不带会话
func (e *testEnv) request(method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// bearer 以 Bearer Token 身份发送 JSON 请求
func (e *testEnv) bearer(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// signUp 注册并返回会话 Cookie
func (e *testEnv) signUp(t *testing.T, account string) *http.Cookie {
	t.Helper()
	w := e.request(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"account":          account,
		"password":         "secret123",
		"confirm_password": "secret123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up failed: %d %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatal("sign-up did not set the session cookie")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return resp
}

func createDish(t *testing.T, db *gorm.DB, name, price string) *model.Dish {
	t.Helper()
	dish := &model.Dish{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Category:    model.CategoryMainCourse,
		IsAvailable: true,
	}
	if err := db.Create(dish).Error; err != nil {
		t.Fatalf("Failed to create dish: %v", err)
	}
	return dish
}
