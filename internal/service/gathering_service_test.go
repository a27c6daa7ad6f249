package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chuan-dai/internal/repository"
)

func TestGatherings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewGatheringService(repository.NewGatheringRepository(db))
	host := createUser(t, db, "alice", "secret123")

	older, err := svc.Create(ctx, host.ID, &CreateGatheringRequest{Title: "春节聚餐", Date: "2024-02-10"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	newer, err := svc.Create(ctx, host.ID, &CreateGatheringRequest{Title: "生日会", Date: "2024-05-01T19:00:00+08:00", Location: "成都"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(older.InviteCode) != 6 || older.InviteCode != strings.ToUpper(older.InviteCode) {
		t.Errorf("Expected 6 char uppercase invite code, got %s", older.InviteCode)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Errorf("Expected newest date first, got %+v", list)
	}

	found, err := svc.GetByInviteCode(ctx, strings.ToLower(older.InviteCode))
	if err != nil {
		t.Fatalf("GetByInviteCode failed: %v", err)
	}
	if found.ID != older.ID {
		t.Errorf("Expected gathering %d, got %d", older.ID, found.ID)
	}

	if _, err := svc.GetByInviteCode(ctx, "ZZZZZZ"); !errors.Is(err, ErrGatheringNotFound) {
		t.Errorf("Expected ErrGatheringNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, host.ID, &CreateGatheringRequest{Title: "x", Date: "next friday"}); !errors.Is(err, ErrInvalidGatheringDate) {
		t.Errorf("Expected ErrInvalidGatheringDate, got %v", err)
	}
}
