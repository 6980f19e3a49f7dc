package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the platform display name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback platform display name.
	DefaultSiteName = "GrowTrade NFTs"
	// RateLimitKey controls the default per-user limit for money-moving requests per second.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// RateLimitOperationsKey maps operation names to per-user limits that
	// override RATE_LIMIT.
	RateLimitOperationsKey = "RATE_LIMIT_OPERATIONS"
	// TradingEnabledKey is a platform-wide switch for NFT purchases and sales.
	TradingEnabledKey = "TRADING_ENABLED"
	// WithdrawalsEnabledKey is a platform-wide switch for withdrawal requests.
	WithdrawalsEnabledKey = "WITHDRAWALS_ENABLED"
	// DefaultRateLimit is the fallback rate limit (0 means unlimited).
	DefaultRateLimit = 5
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "growtrade:rl"
	// DefaultTradingEnabled keeps trading open on a fresh install.
	DefaultTradingEnabled = true
	// DefaultWithdrawalsEnabled keeps withdrawals open on a fresh install.
	DefaultWithdrawalsEnabled = true
)
