package config

const (
	// EnvPrefix namespaces every environment variable consumed by the platform.
	EnvPrefix = "BITEDASH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvDBDSN  = "BITEDASH_DB_DSN"
	EnvDBHost = "BITEDASH_DB_HOST"
	EnvDBUser = "BITEDASH_DB_USER"
	EnvDBName = "BITEDASH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
