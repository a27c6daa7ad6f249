package service

import (
	"context"
	"errors"
	"testing"

	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
)

func TestToggleFavoriteTwiceRestoresState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDishService(repository.NewDishRepository(db))

	user := createUser(t, db, "alice", "secret123")
	dish := createDish(t, db, "麻婆豆腐", "28.00", model.CategoryMainCourse)

	first, err := svc.ToggleFavorite(ctx, user.ID, dish.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !first.IsFavorite {
		t.Error("Expected first toggle to favorite the dish")
	}

	second, err := svc.ToggleFavorite(ctx, user.ID, dish.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if second.IsFavorite {
		t.Error("Expected second toggle to unfavorite the dish")
	}

	favorites, _ := svc.ListFavorites(ctx, user.ID)
	if len(favorites) != 0 {
		t.Errorf("Expected no favorites, got %d", len(favorites))
	}

	if _, err := svc.ToggleFavorite(ctx, user.ID, 9999); !errors.Is(err, ErrDishNotFound) {
		t.Errorf("Expected ErrDishNotFound, got %v", err)
	}
}

func TestListDishes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDishService(repository.NewDishRepository(db))

	user := createUser(t, db, "bob", "secret123")
	tofu := createDish(t, db, "麻婆豆腐", "28.00", model.CategoryMainCourse)
	createDish(t, db, "口水鸡", "38.00", model.CategoryAppetizer)
	hidden := createDish(t, db, "限定菜", "99.00", model.CategoryMainCourse)
	db.Model(&model.Dish{}).Where("id = ?", hidden.ID).Update("is_available", false)

	if _, err := svc.ToggleFavorite(ctx, user.ID, tofu.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	tests := []struct {
		name      string
		userID    int64
		category  string
		wantCount int
		wantFav   int
		wantErr   error
	}{
		{"all for user", user.ID, "", 2, 1, nil},
		{"main course", user.ID, model.CategoryMainCourse, 1, 1, nil},
		{"anonymous", 0, "", 2, 0, nil},
		{"unknown category", user.ID, "SNACK", 0, 0, ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dishes, err := svc.ListDishes(ctx, tt.userID, tt.category)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if len(dishes) != tt.wantCount {
				t.Errorf("Expected %d dishes, got %d", tt.wantCount, len(dishes))
			}
			fav := 0
			for _, d := range dishes {
				if d.IsFavorite {
					fav++
				}
			}
			if fav != tt.wantFav {
				t.Errorf("Expected %d favorites, got %d", tt.wantFav, fav)
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDishService(repository.NewDishRepository(db))

	user := createUser(t, db, "carol", "secret123")
	tofu := createDish(t, db, "麻婆豆腐", "28.00", model.CategoryMainCourse)
	chicken := createDish(t, db, "宫保鸡丁", "48.00", model.CategoryMainCourse)
	beef := createDish(t, db, "水煮牛肉", "58.00", model.CategoryMainCourse)
	createDish(t, db, "紫米露", "18.00", model.CategoryDessert)

	empty, err := svc.Recommendations(ctx, user.ID)
	if err != nil {
		t.Fatalf("Recommendations failed: %v", err)
	}
	if len(empty.Recommendations) != 0 || len(empty.Favorites) != 0 {
		t.Errorf("Expected nothing without favorites, got %+v", empty)
	}

	if _, err := svc.ToggleFavorite(ctx, user.ID, tofu.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	res, err := svc.Recommendations(ctx, user.ID)
	if err != nil {
		t.Fatalf("Recommendations failed: %v", err)
	}
	if len(res.Favorites) != 1 || res.Favorites[0].ID != tofu.ID {
		t.Errorf("Expected tofu as favorite, got %+v", res.Favorites)
	}

	got := make(map[int64]bool)
	for _, d := range res.Recommendations {
		got[d.ID] = true
		if d.Category != model.CategoryMainCourse {
			t.Errorf("Expected only main courses, got %s", d.Category)
		}
	}
	if got[tofu.ID] {
		t.Error("Expected favorites to be excluded")
	}
	if !got[chicken.ID] || !got[beef.ID] {
		t.Errorf("Expected chicken and beef to be recommended, got %v", got)
	}
}
