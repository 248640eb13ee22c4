package config

// EnvPrefix scopes every environment variable consumed by the platform.
const EnvPrefix = "ORBFOOD"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "ORBFOOD_APP_ENV"
	EnvPort       = "ORBFOOD_APP_PORT"
	EnvDBDSN      = "ORBFOOD_DB_DSN"
	EnvDBHost     = "ORBFOOD_DB_HOST"
	EnvDBUser     = "ORBFOOD_DB_USER"
	EnvDBName     = "ORBFOOD_DB_NAME"
	EnvRedisURL   = "ORBFOOD_REDIS_URL"
	EnvJWTSecret  = "ORBFOOD_JWT_SECRET"
	EnvJWTIssuer  = "ORBFOOD_JWT_ISSUER"
	EnvJWTExpMins = "ORBFOOD_JWT_EXPIRATION_MINUTES"
	EnvFeeRate    = "ORBFOOD_BILLING_FEE_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
