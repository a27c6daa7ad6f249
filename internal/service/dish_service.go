package service

import (
	"context"
	"errors"

	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
)

// 菜品相关错误
var (
	ErrDishNotFound    = errors.New("菜品不存在")
	ErrDishUnavailable = errors.New("菜品已下架")
	ErrInvalidCategory = errors.New("菜品分类无效")
)

// 推荐相关常量
const (
	recentFavoriteLimit = 4
	recommendationLimit = 4
)

// DishService 菜单服务
type DishService struct {
	dishRepo *repository.DishRepository
}

// NewDishService 创建 DishService 实例
func NewDishService(dishRepo *repository.DishRepository) *DishService {
	return &DishService{dishRepo: dishRepo}
}

// DishView 带收藏标记的菜品
type DishView struct {
	model.Dish
	IsFavorite bool `json:"is_favorite"`
}

// ToggleResult 收藏切换结果
type ToggleResult struct {
	IsFavorite bool `json:"is_favorite"`
}

// RecommendationResult 推荐结果
type RecommendationResult struct {
	Favorites       []model.Dish `json:"favorites"`
	Recommendations []model.Dish `json:"recommendations"`
}

// ListDishes 获取可售菜品列表
// 参数:
//   - userID: 当前用户，0 表示未登录（收藏标记全部为 false）
//   - category: 分类过滤，为空表示全部
func (s *DishService) ListDishes(ctx context.Context, userID int64, category string) ([]DishView, error) {
	if category != "" && !model.ValidCategory(category) {
		return nil, ErrInvalidCategory
	}

	dishes, err := s.dishRepo.ListAvailable(ctx, category)
	if err != nil {
		return nil, err
	}

	favorites, err := s.favoriteSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]DishView, 0, len(dishes))
	for _, d := range dishes {
		views = append(views, DishView{Dish: d, IsFavorite: favorites[d.ID]})
	}
	return views, nil
}

// GetDish 获取菜品详情
func (s *DishService) GetDish(ctx context.Context, userID, dishID int64) (*DishView, error) {
	dish, err := s.dishRepo.GetByID(ctx, dishID)
	if err != nil {
		return nil, err
	}
	if dish == nil {
		return nil, ErrDishNotFound
	}

	view := &DishView{Dish: *dish}
	if userID > 0 {
		view.IsFavorite, err = s.dishRepo.FavoriteExists(ctx, userID, dishID)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ToggleFavorite 切换菜品收藏
// 已收藏则删除，未收藏则添加
func (s *DishService) ToggleFavorite(ctx context.Context, userID, dishID int64) (*ToggleResult, error) {
	dish, err := s.dishRepo.GetByID(ctx, dishID)
	if err != nil {
		return nil, err
	}
	if dish == nil {
		return nil, ErrDishNotFound
	}

	removed, err := s.dishRepo.RemoveFavorite(ctx, userID, dishID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		return &ToggleResult{IsFavorite: false}, nil
	}

	if err := s.dishRepo.AddFavorite(ctx, userID, dishID); err != nil {
		return nil, err
	}
	return &ToggleResult{IsFavorite: true}, nil
}

// ListFavorites 用户收藏的菜品，最近收藏的在前
func (s *DishService) ListFavorites(ctx context.Context, userID int64) ([]model.Dish, error) {
	favorites, err := s.dishRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	dishes := make([]model.Dish, 0, len(favorites))
	for _, f := range favorites {
		if f.Dish != nil {
			dishes = append(dishes, *f.Dish)
		}
	}
	return dishes, nil
}

// Recommendations 根据最近收藏推荐菜品
// 取最近收藏的 4 道菜所属分类，在这些分类中挑选最多 4 道未收藏的可售菜品
func (s *DishService) Recommendations(ctx context.Context, userID int64) (*RecommendationResult, error) {
	favorites, err := s.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &RecommendationResult{
		Favorites:       favorites,
		Recommendations: []model.Dish{},
	}
	if len(favorites) == 0 {
		return result, nil
	}

	if len(result.Favorites) > recentFavoriteLimit {
		result.Favorites = result.Favorites[:recentFavoriteLimit]
	}

	seen := make(map[string]bool)
	var categories []string
	for _, d := range result.Favorites {
		if !seen[d.Category] {
			seen[d.Category] = true
			categories = append(categories, d.Category)
		}
	}

	exclude := make([]int64, 0, len(favorites))
	for _, d := range favorites {
		exclude = append(exclude, d.ID)
	}

	recommendations, err := s.dishRepo.ListByCategories(ctx, categories, exclude, recommendationLimit)
	if err != nil {
		return nil, err
	}
	result.Recommendations = recommendations
	return result, nil
}

func (s *DishService) favoriteSet(ctx context.Context, userID int64) (map[int64]bool, error) {
	set := make(map[int64]bool)
	if userID <= 0 {
		return set, nil
	}
	ids, err := s.dishRepo.FavoriteDishIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
