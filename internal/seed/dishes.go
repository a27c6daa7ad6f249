// Package seed 写入菜单等初始数据
package seed

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
)

type dishSeed struct {
	name, nameEn string
	desc, descEn string
	price        string
	image        string
	category     string
	spicy, veg   bool
}

// houseDishes 店内菜单：川味和傣味
var houseDishes = []dishSeed{
	{"口水鸡", "Mouthwatering Chicken", "经典川菜，鸡肉鲜嫩，麻辣红油浇汁", "Tender chicken in spicy chili oil", "38.00", "kou-shui-ji", model.CategoryAppetizer, true, false},
	{"夫妻肺片", "Couple's Sliced Beef", "牛杂经典，麻辣鲜香", "Sliced beef and offal in spicy sauce", "42.00", "fu-qi-fei-pian", model.CategoryAppetizer, true, false},
	{"凉拌木耳", "Wood Ear Salad", "黑木耳配酸辣汁，清爽开胃", "Wood ear mushrooms with spicy vinegar dressing", "22.00", "liang-ban-mu-er", model.CategoryAppetizer, false, true},
	{"宫保鸡丁", "Kung Pao Chicken", "鸡丁花生干辣椒快炒，甜辣交织", "Diced chicken with peanuts and dried chilies", "48.00", "gong-bao-ji-ding", model.CategoryMainCourse, true, false},
	{"麻婆豆腐", "Mapo Tofu", "嫩豆腐配肉末，麻辣鲜香", "Silken tofu with minced meat in chili bean sauce", "28.00", "ma-po-dou-fu", model.CategoryMainCourse, true, false},
	{"水煮牛肉", "Boiled Beef in Chili Sauce", "牛肉片在红油汤中煮熟", "Sliced beef cooked in chili oil", "58.00", "shui-zhu-niu-rou", model.CategoryMainCourse, true, false},
	{"回锅肉", "Twice-Cooked Pork", "五花肉先煮后炒，肥而不腻", "Twice-cooked pork belly with fermented soybeans", "45.00", "hui-guo-rou", model.CategoryMainCourse, true, false},
	{"鱼香肉丝", "Yu Xiang Shredded Pork", "肉丝配木耳丝，酸甜微辣", "Shredded pork with wood ear in garlic sauce", "32.00", "yu-xiang-rou-si", model.CategoryMainCourse, false, false},
	{"酸笋鱼汤", "Bamboo Shoot Fish Soup", "酸笋与鱼同煮，开胃解腻", "Fish soup with fermented bamboo shoots", "52.00", "suan-sun-yu-tang", model.CategorySoup, true, false},
	{"柠檬虾", "Lemon Shrimp", "鲜虾配柠檬汁，酸辣清爽", "Fresh shrimp with lemon and chili", "48.00", "ning-meng-xia", model.CategorySoup, true, false},
	{"香茅草烤鱼", "Lemongrass Grilled Fish", "香茅草腌制后烤制", "Fish grilled with lemongrass", "68.00", "xiang-mao-cao-kao-yu", model.CategoryMainCourse, true, false},
	{"傣味鬼鸡", "Dai Style Spicy Chicken", "凉拌鸡肉，酸辣开胃", "Spicy and sour cold chicken", "42.00", "dai-wei-gui-ji", model.CategoryAppetizer, true, false},
	{"包烧脑花", "Grilled Brain in Banana Leaf", "芭蕉叶包烧，风味独特", "Grilled in banana leaf", "35.00", "bao-shao-nao-hua", model.CategoryMainCourse, true, false},
	{"紫米露", "Purple Rice Drink", "紫米椰浆，傣族传统甜品", "Purple rice with coconut milk", "18.00", "zi-mi-lu", model.CategoryDessert, false, true},
	{"芒果糯米饭", "Mango Sticky Rice", "香甜芒果配椰浆糯米饭", "Sticky rice with mango and coconut milk", "25.00", "mang-guo-nuo-mi-fan", model.CategoryDessert, false, true},
	{"鲜榨芒果汁", "Fresh Mango Juice", "新鲜芒果现榨", "Fresh squeezed mango juice", "15.00", "mang-guo-zha", model.CategoryBeverage, false, true},
	{"酸角汁", "Tamarind Juice", "天然酸角熬制，酸甜可口", "Tamarind drink", "12.00", "suan-jiao-zhi", model.CategoryBeverage, false, true},
}

// HouseDishes 返回店内菜单
func HouseDishes() []model.Dish {
	dishes := make([]model.Dish, 0, len(houseDishes))
	for _, s := range houseDishes {
		desc, descEn := s.desc, s.descEn
		image := "/dishes/" + s.image + ".jpg"
		dishes = append(dishes, model.Dish{
			Name:         s.name,
			NameEn:       s.nameEn,
			Description:  &desc,
			DescEn:       &descEn,
			Price:        decimal.RequireFromString(s.price),
			Image:        &image,
			Category:     s.category,
			IsSpicy:      s.spicy,
			IsVegetarian: s.veg,
			IsAvailable:  true,
		})
	}
	return dishes
}

// Dishes 菜品表为空时写入店内菜单
// 返回:
//   - int: 写入的菜品数，表非空时为 0
func Dishes(ctx context.Context, dishRepo *repository.DishRepository) (int, error) {
	count, err := dishRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	dishes := HouseDishes()
	if err := dishRepo.CreateBatch(ctx, dishes); err != nil {
		return 0, err
	}
	zap.L().Info("seeded dishes", zap.Int("count", len(dishes)))
	return len(dishes), nil
}
