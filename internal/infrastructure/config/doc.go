// Package config loads docbind's YAML configuration, applies DOCBIND_*
// environment overrides and validates the result.
//
// Secrets belong in the environment rather than the file:
// DOCBIND_DATABASE_PASSWORD, DOCBIND_MQTT_PASSWORD, DOCBIND_INFLUXDB_TOKEN
// and DOCBIND_JWT_SECRET override their YAML counterparts. Account
// password hashes come from "docbind hash-password".
//
//	cfg, err := config.Load(os.Getenv("DOCBIND_CONFIG"))
//	if err != nil {
//	    return err
//	}
package config
