package router

import (
	"fmt"
	"strings"

	"github.com/spinshop/internal/cache"
	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/constants"
	adminhandlers "github.com/spinshop/internal/http/handlers/admin"
	publichandlers "github.com/spinshop/internal/http/handlers/public"
	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁，请 %d 秒后重试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/genres", publicHandler.GetGenres)
			public.GET("/record-groups", publicHandler.GetRecordGroups)
			public.GET("/records", publicHandler.GetRecords)
			public.GET("/records/:slug", publicHandler.GetRecordBySlug)
			public.GET("/captcha/setting", publicHandler.GetCaptchaSetting)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.UserProfile)
			user.PUT("/me/profile", publicHandler.UserUpdateProfile)
			user.PUT("/me/password", publicHandler.UserChangePassword)
			user.GET("/cart", publicHandler.GetCartContents)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.POST("/cart/items/remove", publicHandler.RemoveCartItem)
			user.POST("/cart/disable", publicHandler.DisableCart)
			user.POST("/cart/enable", publicHandler.EnableCart)
			user.POST("/orders", publicHandler.CreateOrderFromCart)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/by-order-no/:order_no", publicHandler.GetOrderByOrderNo)
		}

		// 管理员接口（统一走用户登录，按角色放行）
		admin := apiV1.Group("/admin")
		authorized := admin.Use(UserAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), AdminRequiredMiddleware())
		{
			// 流派管理
			authorized.GET("/genres", adminHandler.GetAdminGenres)
			authorized.POST("/genres", adminHandler.CreateGenre)
			authorized.PUT("/genres/:id", adminHandler.UpdateGenre)
			authorized.DELETE("/genres/:id", adminHandler.DeleteGenre)

			// 系列管理
			authorized.GET("/record-groups", adminHandler.GetAdminRecordGroups)
			authorized.POST("/record-groups", adminHandler.CreateRecordGroup)
			authorized.PUT("/record-groups/:id", adminHandler.UpdateRecordGroup)
			authorized.DELETE("/record-groups/:id", adminHandler.DeleteRecordGroup)

			// 唱片管理
			authorized.GET("/records", adminHandler.GetAdminRecords)
			authorized.GET("/records/:id", adminHandler.GetAdminRecord)
			authorized.POST("/records", adminHandler.CreateRecord)
			authorized.PUT("/records/:id", adminHandler.UpdateRecord)
			authorized.DELETE("/records/:id", adminHandler.DeleteRecord)
			authorized.POST("/records/:id/stock", adminHandler.AdjustRecordStock)

			// 订单管理
			authorized.GET("/orders", adminHandler.AdminListOrders)
			authorized.GET("/orders/:id", adminHandler.AdminGetOrder)

			// 用户管理
			authorized.GET("/users", adminHandler.GetAdminUsers)
			authorized.PUT("/users/batch-status", adminHandler.BatchUpdateUserStatus)
			authorized.GET("/users/:id", adminHandler.GetAdminUser)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
