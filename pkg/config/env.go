package config

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv        = "ORDERDESK_APP_ENV"
	EnvPort          = "ORDERDESK_APP_PORT"
	EnvDBDSN         = "ORDERDESK_DB_DSN"
	EnvDBHost        = "ORDERDESK_DB_HOST"
	EnvDBUser        = "ORDERDESK_DB_USER"
	EnvDBName        = "ORDERDESK_DB_NAME"
	EnvUseSQLite     = "ORDERDESK_USE_SQLITE"
	EnvRedisURL      = "ORDERDESK_REDIS_URL"
	EnvJWTSecret     = "ORDERDESK_JWT_SECRET"
	EnvJWTIssuer     = "ORDERDESK_JWT_ISSUER"
	EnvBackendURL    = "ORDERDESK_BACKEND_BASE_URL"
	EnvDraftStore    = "ORDERDESK_DRAFT_STORE"
	EnvPublishEvents = "ORDERDESK_PUBLISH_EVENTS"
	EnvGCPProjectID  = "ORDERDESK_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
