package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
)

// Handlers 汇总所有 HTTP 处理器
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Dish      *DishHandler
	Order     *OrderHandler
	Photo     *PhotoHandler
	Gathering *GatheringHandler
	Upload    *UploadHandler
}

// RegisterRoutes 注册所有 API 路由
// 参数:
//   - router: Gin 引擎
//   - h: 处理器集合
//   - auth: 认证器
func RegisterRoutes(router *gin.Engine, h *Handlers, auth *middleware.Authenticator) {
	required := middleware.AuthMiddleware(auth)
	optional := middleware.OptionalAuthMiddleware(auth)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 上传组件直接调用，自行处理认证并返回 {success, url, key}
	router.POST("/api/photos/upload-image", h.Upload.UploadImage)

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 认证相关（无需登录）
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/sign-up", h.Auth.SignUp)
		authGroup.POST("/sign-in", h.Auth.SignIn)
		authGroup.POST("/sign-out", optional, h.Auth.SignOut)
		authGroup.POST("/otp/send", h.Auth.SendOTP)
		authGroup.POST("/otp/sign-in", h.Auth.SignInWithOTP)
		authGroup.POST("/password/reset", h.Auth.ResetPassword)
		authGroup.POST("/refresh", h.Auth.RefreshToken)
	}

	// 用户相关（需要登录）
	users := v1.Group("/users", required)
	{
		users.GET("/me", h.User.GetProfile)
		users.PUT("/me", h.User.UpdateProfile)
		users.PUT("/me/password", h.User.ChangePassword)
	}

	// 菜单（游客可浏览）
	dishes := v1.Group("/dishes")
	{
		dishes.GET("", optional, h.Dish.ListDishes)
		dishes.GET("/recommendations", required, h.Dish.Recommendations)
		dishes.GET("/favorites", required, h.Dish.ListFavorites)
		dishes.GET("/:id", optional, h.Dish.GetDish)
		dishes.POST("/:id/favorite", required, h.Dish.ToggleFavorite)
	}

	// 订单相关（需要登录）
	orders := v1.Group("/orders", required)
	{
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/status", h.Order.UpdateStatus)
	}

	// 照片墙（游客可浏览）
	photos := v1.Group("/photos")
	{
		photos.GET("", optional, h.Photo.ListPhotos)
		photos.POST("", required, h.Photo.SavePhoto)
		photos.GET("/:id", optional, h.Photo.GetPhoto)
		photos.POST("/:id/favorite", required, h.Photo.ToggleFavorite)
		photos.GET("/:id/comments", h.Photo.ListComments)
		photos.POST("/:id/comments", required, h.Photo.AddComment)
	}

	// 聚会
	gatherings := v1.Group("/gatherings")
	{
		gatherings.GET("", h.Gathering.List)
		gatherings.POST("", required, h.Gathering.Create)
		gatherings.GET("/invite/:code", h.Gathering.GetByInviteCode)
	}
}
