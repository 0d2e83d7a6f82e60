package config

const (
	EnvPrefix = "gratibot"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN      = "GRATIBOT_DB_DSN"
	EnvDBHost     = "GRATIBOT_DB_HOST"
	EnvDBUser     = "GRATIBOT_DB_USER"
	EnvDBName     = "GRATIBOT_DB_NAME"
	EnvDBPassword = "GRATIBOT_DB_PASSWORD"
	EnvAPIToken   = "GRATIBOT_API_TOKEN"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName, EnvDBPassword}
