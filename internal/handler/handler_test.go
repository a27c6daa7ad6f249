package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"chuan-dai/internal/model"
	"chuan-dai/pkg/response"
	"chuan-dai/pkg/util"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/dishes/1/favorite"},
		{http.MethodPost, "/api/v1/photos"},
		{http.MethodGet, "/api/v1/dishes/recommendations"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.request(tt.method, tt.path, nil, nil)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("Expected 401, got %d", w.Code)
			}
			if resp := decode(t, w); resp.Message != "请先登录" {
				t.Errorf("Expected 请先登录, got %s", resp.Message)
			}
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"account":          "ab",
		"password":         "secret123",
		"confirm_password": "different",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	var body struct {
		Code int `json:"code"`
		Data struct {
			Fields map[string][]string `json:"fields"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != response.CodeValidationError {
		t.Errorf("Expected code %d, got %d", response.CodeValidationError, body.Code)
	}
	for _, field := range []string{"account", "confirm_password"} {
		if len(body.Data.Fields[field]) == 0 {
			t.Errorf("Expected error for %s, got %v", field, body.Data.Fields)
		}
	}

	malformed := env.request(http.MethodPost, "/api/v1/auth/sign-up", "{not json", nil)
	if malformed.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", malformed.Code)
	}
}

func TestSessionCookieFlow(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "alice")

	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly session cookie")
	}

	w := env.request(http.MethodGet, "/api/v1/users/me", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var user model.User
	json.Unmarshal(decode(t, w).Data, &user)
	if user.Account != "alice" {
		t.Errorf("Expected alice, got %s", user.Account)
	}

	dup := env.request(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"account": "alice", "password": "secret123", "confirm_password": "secret123",
	}, nil)
	if resp := decode(t, dup); resp.Code != response.CodeUserExists {
		t.Errorf("Expected code %d, got %d", response.CodeUserExists, resp.Code)
	}

	out := env.request(http.MethodPost, "/api/v1/auth/sign-out", nil, cookie)
	if out.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", out.Code)
	}

	after := env.request(http.MethodGet, "/api/v1/users/me", nil, cookie)
	if after.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after sign-out, got %d", after.Code)
	}
}

// tokenPair 登录和刷新接口返回的 Token
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func TestRefreshRotatesAndSignOutRevokes(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"account": "carol", "password": "secret123", "confirm_password": "secret123",
	}, nil)
	var issued tokenPair
	json.Unmarshal(decode(t, w).Data, &issued)
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("Expected tokens from sign-up, got %+v", issued)
	}

	refresh := func(token string) *httptest.ResponseRecorder {
		return env.request(http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": token}, nil)
	}

	w = refresh(issued.RefreshToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", w.Code, w.Body.String())
	}
	var rotated tokenPair
	json.Unmarshal(decode(t, w).Data, &rotated)
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatalf("Expected access and refresh token, got %s", w.Body.String())
	}
	if rotated.RefreshToken == issued.RefreshToken {
		t.Error("Expected a new refresh token")
	}
	if w := refresh(issued.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for used refresh token, got %d", w.Code)
	}

	if w := env.bearer(http.MethodGet, "/api/v1/users/me", nil, rotated.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with refreshed token, got %d", w.Code)
	}

	out := env.bearer(http.MethodPost, "/api/v1/auth/sign-out",
		map[string]string{"refresh_token": rotated.RefreshToken}, rotated.AccessToken)
	if out.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", out.Code)
	}

	if w := refresh(rotated.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for refresh after sign-out, got %d", w.Code)
	}
	if w := env.bearer(http.MethodGet, "/api/v1/users/me", nil, rotated.AccessToken); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for access token after sign-out, got %d", w.Code)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "bob")

	w := env.request(http.MethodPost, "/api/v1/auth/sign-in", map[string]string{
		"account": "bob", "password": "wrong-password",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != response.CodePasswordWrong {
		t.Errorf("Expected code %d, got %d", response.CodePasswordWrong, resp.Code)
	}
}

func TestOrderEndpoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signUp(t, "carol")
	stranger := env.signUp(t, "dave")

	fish := createDish(t, env.db, "水煮鱼", "28.00")
	chicken := createDish(t, env.db, "口水鸡", "48.00")

	w := env.request(http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"dish_id": fish.ID, "quantity": 2},
			{"dish_id": chicken.ID, "quantity": 1, "remark": "少辣"},
		},
	}, owner)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var order model.Order
	json.Unmarshal(decode(t, w).Data, &order)
	if !order.TotalAmount.Equal(decimal.RequireFromString("104.00")) {
		t.Errorf("Expected total 104.00, got %s", order.TotalAmount)
	}

	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	if w := env.request(http.MethodGet, path, nil, stranger); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign order, got %d", w.Code)
	}

	tests := []struct {
		name     string
		status   string
		wantCode int
	}{
		{"complete pending", "COMPLETED", http.StatusConflict},
		{"unknown status", "COOKING", http.StatusBadRequest},
		{"confirm", "CONFIRMED", http.StatusOK},
		{"cancel confirmed", "CANCELLED", http.StatusConflict},
		{"complete", "COMPLETED", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(http.MethodPost, path+"/status", map[string]string{"status": tt.status}, owner)
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}

	empty := env.request(http.MethodPost, "/api/v1/orders", map[string]interface{}{"items": []interface{}{}}, owner)
	if empty.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty order, got %d", empty.Code)
	}

	missing := env.request(http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"dish_id": 9999, "quantity": 1}},
	}, owner)
	if missing.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown dish, got %d", missing.Code)
	}
}

func TestDishFavoriteToggle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "erin")
	dish := createDish(t, env.db, "麻婆豆腐", "22.00")
	path := fmt.Sprintf("/api/v1/dishes/%d/favorite", dish.ID)

	for i, want := range []bool{true, false} {
		w := env.request(http.MethodPost, path, nil, cookie)
		var result struct {
			IsFavorite bool `json:"is_favorite"`
		}
		json.Unmarshal(decode(t, w).Data, &result)
		if result.IsFavorite != want {
			t.Errorf("Toggle %d: expected %v, got %v", i, want, result.IsFavorite)
		}
	}

	guest := env.request(http.MethodGet, "/api/v1/dishes", nil, nil)
	if guest.Code != http.StatusOK {
		t.Errorf("Expected guests to browse the menu, got %d", guest.Code)
	}

	if w := env.request(http.MethodGet, "/api/v1/dishes/abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", w.Code)
	}
}

func TestUploadImageContract(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "frank")
	image := util.EncodeImageDataURI("image/png", []byte("png bytes"))

	tests := []struct {
		name      string
		body      interface{}
		cookie    bool
		putErr    error
		wantCode  int
		wantError string
	}{
		{"unauthorized", map[string]string{"base64Data": image}, false, nil, http.StatusUnauthorized, UploadErrUnauthorized},
		{"missing data", map[string]string{}, true, nil, http.StatusBadRequest, UploadErrInvalidData},
		{"not an image", map[string]string{"base64Data": "data:text/plain;base64,aGk="}, true, nil, http.StatusBadRequest, UploadErrInvalidData},
		{"storage down", map[string]string{"base64Data": image}, true, fmt.Errorf("cos unavailable"), http.StatusInternalServerError, UploadErrFailed},
		{"ok", map[string]string{"base64Data": image}, true, nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.storage.putErr = tt.putErr
			c := cookie
			if !tt.cookie {
				c = nil
			}

			w := env.request(http.MethodPost, "/api/photos/upload-image", tt.body, c)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d", tt.wantCode, w.Code)
			}

			var resp UploadResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, resp.Error)
			}
			if tt.wantError == "" && (!resp.Success || resp.URL == "" || resp.Key == "") {
				t.Errorf("Expected success with url and key, got %+v", resp)
			}
		})
	}
}

func TestUploadImageBodyLimit(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "grace")
	image := util.EncodeImageDataURI("image/png", []byte("png bytes"))

	// 图片本身合法，但请求体超过上限
	w := env.request(http.MethodPost, "/api/photos/upload-image", map[string]string{
		"base64Data": image,
		"padding":    strings.Repeat("x", 2<<20),
	}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	var resp UploadResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != UploadErrInvalidData {
		t.Errorf("Expected %s, got %q", UploadErrInvalidData, resp.Error)
	}
	if len(env.storage.objects) != 0 {
		t.Errorf("Expected nothing stored, got %d objects", len(env.storage.objects))
	}
}

func TestPhotoWall(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "grace")

	bad := env.request(http.MethodPost, "/api/v1/photos", map[string]string{"title": "  ", "url": "https://cdn/x.jpg"}, cookie)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank title, got %d", bad.Code)
	}
	var body struct {
		Data struct {
			Fields map[string][]string `json:"fields"`
		} `json:"data"`
	}
	json.Unmarshal(bad.Body.Bytes(), &body)
	if len(body.Data.Fields["title"]) == 0 {
		t.Errorf("Expected title field error, got %v", body.Data.Fields)
	}

	w := env.request(http.MethodPost, "/api/v1/photos", map[string]interface{}{
		"title": "火锅之夜", "url": "https://cdn/x.jpg", "width": 800, "height": 600,
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var photo model.Photo
	json.Unmarshal(decode(t, w).Data, &photo)

	comment := env.request(http.MethodPost, fmt.Sprintf("/api/v1/photos/%d/comments", photo.ID), map[string]string{"content": "好看"}, cookie)
	if comment.Code != http.StatusCreated {
		t.Errorf("Expected 201 for comment, got %d", comment.Code)
	}

	list := env.request(http.MethodGet, "/api/v1/photos?page=1&page_size=10", nil, nil)
	var page struct {
		Total   int64 `json:"total"`
		HasMore bool  `json:"has_more"`
	}
	json.Unmarshal(decode(t, list).Data, &page)
	if page.Total != 1 || page.HasMore {
		t.Errorf("Unexpected page %+v", page)
	}

	if w := env.request(http.MethodGet, "/api/v1/photos/9999", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGatheringInvite(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signUp(t, "heidi")

	w := env.request(http.MethodPost, "/api/v1/gatherings", map[string]string{
		"title": "周末聚餐", "date": "2024-05-01",
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var gathering model.Gathering
	json.Unmarshal(decode(t, w).Data, &gathering)

	found := env.request(http.MethodGet, "/api/v1/gatherings/invite/"+gathering.InviteCode, nil, nil)
	if found.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", found.Code)
	}

	if w := env.request(http.MethodGet, "/api/v1/gatherings/invite/NOPE00", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	badDate := env.request(http.MethodPost, "/api/v1/gatherings", map[string]string{"title": "t", "date": "next friday"}, cookie)
	if badDate.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", badDate.Code)
	}
}
