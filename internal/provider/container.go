package provider

import (
	"github.com/spinshop/internal/cache"
	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/queue"
	"github.com/spinshop/internal/repository"
	"github.com/spinshop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo        repository.UserRepository
	GenreRepo       repository.GenreRepository
	RecordGroupRepo repository.RecordGroupRepository
	RecordRepo      repository.RecordRepository
	CartRepo        repository.CartRepository
	OrderRepo       repository.OrderRepository

	// Services
	AuthService    *service.AuthService
	CaptchaService *service.CaptchaService
	CatalogService *service.CatalogService
	CartService    *service.CartService
	OrderService   *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.GenreRepo = repository.NewGenreRepository(db)
	c.RecordGroupRepo = repository.NewRecordGroupRepository(db)
	c.RecordRepo = repository.NewRecordRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.UserRepo, c.CartRepo)
	c.CatalogService = service.NewCatalogService(c.GenreRepo, c.RecordGroupRepo, c.RecordRepo)
	c.CartService = service.NewCartService(c.Config, c.UserRepo, c.RecordRepo, c.CartRepo, c.QueueClient)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CartRepo, c.RecordRepo, c.UserRepo)
}
