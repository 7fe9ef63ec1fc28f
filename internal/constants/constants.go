package constants

// 用户角色常量
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 购物车事件常量（日志与审计用）
const (
	CartEventAdd     = "add"
	CartEventRemove  = "remove"
	CartEventConvert = "convert"
	CartEventDisable = "disable"
	CartEventEnable  = "enable"
)

// 订单支付方式常量
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

// 订单号前缀
const (
	OrderNoPrefix = "SS"
)

// 验证码提供方常量
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin    = "login"
	CaptchaSceneRegister = "register"
)

// 队列常量
const (
	QueueDefault        = "default"
	TaskCartIdleDisable = "cart:idle_disable"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "spin"
)

// 缓存键常量
const (
	CacheKeyGenreList       = "catalog:genres"
	CacheKeyRecordGroupList = "catalog:record_groups"
)

// 购物车锁冲突重试上限
const (
	CartLockRetryLimit = 3
)

// 闲置购物车兜底扫描单批上限
const (
	CartIdleSweepBatchSize = 100
)
