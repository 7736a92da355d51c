package config

// EnvPrefix namespaces nested lookups; every field also carries its full name
// as the envconfig alternate key, so the KARTLY_* names below are what operators set.
const EnvPrefix = "KARTLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "KARTLY_APP_ENV"
	EnvPort     = "KARTLY_APP_PORT"
	EnvLogLevel = "KARTLY_LOG_LEVEL"

	EnvDBDSN  = "KARTLY_DB_DSN"
	EnvDBHost = "KARTLY_DB_HOST"
	EnvDBUser = "KARTLY_DB_USER"
	EnvDBName = "KARTLY_DB_NAME"

	EnvRedisURL = "KARTLY_REDIS_URL"

	EnvJWTSecret  = "KARTLY_JWT_SECRET"
	EnvJWTIssuer  = "KARTLY_JWT_ISSUER"
	EnvJWTExpMins = "KARTLY_JWT_EXPIRATION_MINUTES"

	EnvRazorpayKeyID      = "KARTLY_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret  = "KARTLY_RAZORPAY_KEY_SECRET"
	EnvRazorpayCurrency   = "KARTLY_RAZORPAY_CURRENCY"
	EnvRazorpayMinorScale = "KARTLY_RAZORPAY_MINOR_UNIT_SCALE"

	EnvPaymentSessionTTL = "KARTLY_PAYMENT_SESSION_TTL"
	EnvCORSOrigins       = "KARTLY_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
