// Package api 封装与服务器的 HTTP API 交互
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chuan-dai/internal/model"
)

// ErrNotLoggedIn 本地没有可用的登录凭证
var ErrNotLoggedIn = errors.New("未登录，请先运行 'chuandai login'")

// APIError 服务端返回的业务错误
type APIError struct {
	Status  int                 // HTTP 状态码
	Code    int                 // 业务状态码
	Message string              // 提示信息
	Fields  map[string][]string // 字段校验错误
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Client API 客户端
// Access Token 过期时自动用 Refresh Token 换新并重试一次
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRefresh    func(accessToken, refreshToken string)
}

// NewClient 创建 API 客户端
// 参数:
//   - baseURL: 例如 http://localhost:8080
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTokens 设置登录凭证
func (c *Client) SetTokens(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

// OnRefresh 设置 Token 刷新后的回调，用于持久化新凭证
func (c *Client) OnRefresh(fn func(accessToken, refreshToken string)) {
	c.onRefresh = fn
}

// AccessToken 当前的访问 Token
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// BaseURL 服务器地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- 通用响应 ---
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// --- 认证 ---

// AuthResult 登录结果
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *model.User `json:"user"`
}

// SignIn 使用账号密码登录
func (c *Client) SignIn(account, password string) (*AuthResult, error) {
	var result AuthResult
	err := c.call(http.MethodPost, "/api/v1/auth/sign-in", map[string]string{
		"account":  account,
		"password": password,
	}, &result, false)
	if err != nil {
		return nil, err
	}
	c.SetTokens(result.AccessToken, result.RefreshToken)
	return &result, nil
}

// SendOTP 发送短信验证码
// 参数:
//   - purpose: register / login / reset
func (c *Client) SendOTP(phone, purpose string) error {
	return c.call(http.MethodPost, "/api/v1/auth/otp/send", map[string]string{
		"phone": phone,
		"type":  purpose,
	}, nil, false)
}

// SignInWithOTP 使用手机验证码登录
func (c *Client) SignInWithOTP(phone, code string) (*AuthResult, error) {
	var result AuthResult
	err := c.call(http.MethodPost, "/api/v1/auth/otp/sign-in", map[string]string{
		"phone": phone,
		"code":  code,
	}, &result, false)
	if err != nil {
		return nil, err
	}
	c.SetTokens(result.AccessToken, result.RefreshToken)
	return &result, nil
}

// SignOut 登出，服务端把当前的 Access Token 和 Refresh Token 加入黑名单
func (c *Client) SignOut() error {
	c.mu.Lock()
	body := map[string]string{"refresh_token": c.refreshToken}
	c.mu.Unlock()
	return c.call(http.MethodPost, "/api/v1/auth/sign-out", body, nil, true)
}

// refresh 使用 Refresh Token 换取新的 Token
func (c *Client) refresh() error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()
	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.call(http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, &result, false); err != nil {
		return err
	}

	// 服务端未轮换时继续使用原来的 Refresh Token
	if result.RefreshToken == "" {
		result.RefreshToken = refreshToken
	}
	c.SetTokens(result.AccessToken, result.RefreshToken)
	if c.onRefresh != nil {
		c.onRefresh(result.AccessToken, result.RefreshToken)
	}
	return nil
}

// Me 获取当前用户
func (c *Client) Me() (*model.User, error) {
	var user model.User
	if err := c.call(http.MethodGet, "/api/v1/users/me", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- 菜单 ---

// Dish 菜品及收藏标记
type Dish struct {
	model.Dish
	IsFavorite bool `json:"is_favorite"`
}

// ListDishes 获取菜单
func (c *Client) ListDishes(category string) ([]Dish, error) {
	path := "/api/v1/dishes"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var dishes []Dish
	if err := c.call(http.MethodGet, path, nil, &dishes, c.AccessToken() != ""); err != nil {
		return nil, err
	}
	return dishes, nil
}

// GetDish 获取菜品详情
func (c *Client) GetDish(id int64) (*Dish, error) {
	var dish Dish
	if err := c.call(http.MethodGet, fmt.Sprintf("/api/v1/dishes/%d", id), nil, &dish, c.AccessToken() != ""); err != nil {
		return nil, err
	}
	return &dish, nil
}

// ToggleFavorite 收藏或取消收藏菜品
// 返回:
//   - bool: 切换后是否已收藏
func (c *Client) ToggleFavorite(dishID int64) (bool, error) {
	var result struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := c.call(http.MethodPost, fmt.Sprintf("/api/v1/dishes/%d/favorite", dishID), nil, &result, true); err != nil {
		return false, err
	}
	return result.IsFavorite, nil
}

// --- 订单 ---

// OrderItem 下单明细
type OrderItem struct {
	DishID   int64  `json:"dish_id"`
	Quantity int    `json:"quantity"`
	Remark   string `json:"remark,omitempty"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Items       []OrderItem `json:"items"`
	Remark      string      `json:"remark,omitempty"`
	GatheringID *int64      `json:"gathering_id,omitempty"`
}

// CreateOrder 提交订单
func (c *Client) CreateOrder(req *CreateOrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.call(http.MethodPost, "/api/v1/orders", req, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders 我的订单
func (c *Client) ListOrders(status string) ([]model.Order, error) {
	path := "/api/v1/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var orders []model.Order
	if err := c.call(http.MethodGet, path, nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder 订单详情
func (c *Client) GetOrder(id int64) (*model.Order, error) {
	var order model.Order
	if err := c.call(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", id), nil, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus 变更订单状态
func (c *Client) UpdateOrderStatus(id int64, status string) (*model.Order, error) {
	var order model.Order
	path := fmt.Sprintf("/api/v1/orders/%d/status", id)
	if err := c.call(http.MethodPost, path, map[string]string{"status": status}, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// --- 照片 ---

// UploadResult 图片上传结果
type UploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key"`
	Error   string `json:"error"`
}

// UploadError 上传接口返回的错误
// Kind 为 UNAUTHORIZED / INVALID_DATA / UPLOAD_FAILED
type UploadError struct {
	Status int
	Kind   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("上传失败: %s (HTTP %d)", e.Kind, e.Status)
}

// UploadImage 上传一张图片
// 该接口不使用统一响应结构
func (c *Client) UploadImage(base64Data, subfolder string) (*UploadResult, error) {
	body := map[string]string{"base64Data": base64Data}
	if subfolder != "" {
		body["subfolder"] = subfolder
	}

	send := func() (*http.Response, error) {
		req, err := c.newRequest(http.MethodPost, "/api/photos/upload-image", body, true)
		if err != nil {
			return nil, err
		}
		return c.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized && c.refresh() == nil {
		resp.Body.Close()
		if resp, err = send(); err != nil {
			return nil, fmt.Errorf("请求失败: %w", err)
		}
	}
	defer resp.Body.Close()

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if !result.Success {
		return nil, &UploadError{Status: resp.StatusCode, Kind: result.Error}
	}
	return &result, nil
}

// SavePhotoRequest 保存照片请求
type SavePhotoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	EmotionTag  string `json:"emotion_tag,omitempty"`
	GatheringID *int64 `json:"gathering_id,omitempty"`
}

// SavePhoto 保存照片
func (c *Client) SavePhoto(req *SavePhotoRequest) (*model.Photo, error) {
	var photo model.Photo
	if err := c.call(http.MethodPost, "/api/v1/photos", req, &photo, true); err != nil {
		return nil, err
	}
	return &photo, nil
}

// Photo 照片墙中的照片
type Photo struct {
	model.Photo
	Uploader      *model.UserBrief `json:"uploader"`
	FavoriteCount int64            `json:"favorite_count"`
	CommentCount  int64            `json:"comment_count"`
	IsFavorited   bool             `json:"is_favorited"`
}

// PhotoPage 照片分页
type PhotoPage struct {
	Items    []Photo `json:"items"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	HasMore  bool    `json:"has_more"`
}

// ListPhotos 照片墙
func (c *Client) ListPhotos(page, pageSize int) (*PhotoPage, error) {
	var result PhotoPage
	path := fmt.Sprintf("/api/v1/photos?page=%d&page_size=%d", page, pageSize)
	if err := c.call(http.MethodGet, path, nil, &result, c.AccessToken() != ""); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 通用请求封装 ---

// call 发送请求并把 data 解析到 out
// auth 为 true 时带上 Bearer Token，401 时刷新后重试一次
func (c *Client) call(method, path string, body, out interface{}, auth bool) error {
	if auth && c.AccessToken() == "" {
		return ErrNotLoggedIn
	}

	resp, err := c.do(method, path, body, auth)
	var apiErr *APIError
	if auth && errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if c.refresh() == nil {
			resp, err = c.do(method, path, body, auth)
		}
	}
	if err != nil {
		return err
	}

	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	return nil
}

func (c *Client) newRequest(method, path string, body interface{}, auth bool) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(method, path string, body interface{}, auth bool) (*apiResponse, error) {
	req, err := c.newRequest(method, path, body, auth)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败 (HTTP %d): %w", resp.StatusCode, err)
	}

	if apiResp.Code != 0 {
		apiErr := &APIError{Status: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Message}
		var detail struct {
			Fields map[string][]string `json:"fields"`
		}
		if json.Unmarshal(apiResp.Data, &detail) == nil {
			apiErr.Fields = detail.Fields
		}
		return nil, apiErr
	}

	return &apiResp, nil
}
