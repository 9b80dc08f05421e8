package config

const (
	EnvPrefix = "dollmart"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	DBDriverSQLite = "sqlite"

	EnvDBDSN  = "DOLLMART_DB_DSN"
	EnvDBHost = "DOLLMART_DB_HOST"
	EnvDBUser = "DOLLMART_DB_USER"
	EnvDBName = "DOLLMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
