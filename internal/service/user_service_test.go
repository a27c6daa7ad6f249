package service

import (
	"context"
	"errors"
	"testing"

	"chuan-dai/pkg/util"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "alice", "secret1")
	users := NewUserService(f.users, f.session)

	tests := []struct {
		name    string
		req     UpdateProfileRequest
		wantErr error
	}{
		{"blank nickname", UpdateProfileRequest{Nickname: strPtr("  ")}, ErrNicknameEmpty},
		{"unknown gender", UpdateProfileRequest{Gender: strPtr("robot")}, ErrInvalidGender},
		{"bad birthday", UpdateProfileRequest{Birthday: strPtr("15/03/1990")}, ErrInvalidBirthday},
		{"valid", UpdateProfileRequest{
			Nickname: strPtr(" 阿丽 "),
			Gender:   strPtr("FEMALE"),
			Birthday: strPtr("1990-03-15"),
			Bio:      strPtr("爱吃辣"),
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.UpdateProfile(ctx, user.ID, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	updated, err := users.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if updated.Nickname == nil || *updated.Nickname != "阿丽" {
		t.Errorf("Expected trimmed nickname, got %v", updated.Nickname)
	}
	if updated.Birthday == nil || updated.Birthday.Format(birthdayLayout) != "1990-03-15" {
		t.Errorf("Expected birthday 1990-03-15, got %v", updated.Birthday)
	}

	// 空字符串清空
	cleared, err := users.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{Gender: strPtr(""), Bio: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if cleared.Gender != nil || cleared.Bio != nil {
		t.Errorf("Expected gender and bio cleared, got %v %v", cleared.Gender, cleared.Bio)
	}

	if _, err := users.GetProfile(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "bob", "secret1")
	users := NewUserService(f.users, f.session)

	current, err := f.session.Create(ctx, user.ID, ClientMeta{})
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	other, err := f.session.Create(ctx, user.ID, ClientMeta{})
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	wrong := &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "abc123", ConfirmPassword: "abc123"}
	if err := users.ChangePassword(ctx, user.ID, current.ID, wrong); !errors.Is(err, ErrPasswordWrong) {
		t.Fatalf("Expected ErrPasswordWrong, got %v", err)
	}

	req := &ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "abc123", ConfirmPassword: "abc123"}
	if err := users.ChangePassword(ctx, user.ID, current.ID, req); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if !util.CheckPassword("abc123", stored.PasswordHash) {
		t.Error("Expected new password to be stored")
	}
	if session, _, _ := f.session.Validate(ctx, current.ID); session == nil {
		t.Error("Expected current session to survive")
	}
	if session, _, _ := f.session.Validate(ctx, other.ID); session != nil {
		t.Error("Expected other session to be invalidated")
	}
}
