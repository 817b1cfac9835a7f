// Package config loads the service configuration from YAML.
//
// References of the form ${NAME} are replaced with environment variables
// before parsing; a reference to an unset variable is an error. Use $$ for
// a literal dollar sign.
//
//	store:
//	  driver: redis
//	  redis:
//	    addr: ${REDIS_ADDR}
//	    password: ${REDIS_PASSWORD}
//	database:
//	  driver: postgres
//	  dsn: ${DATABASE_DSN}
//	cache:
//	  classifier_format_version: 3
package config
