// Package influxdb records docbind connection telemetry in InfluxDB.
//
// The Metrics observer writes through Client, which wraps the batching
// write API of influxdb-client-go:
//
//	docbind_state     one point per state transition (outcome, elapsed_ms)
//	docbind_registry  model and plugin counts per database
//
// Writes never block the database. Batch failures arrive on the
// SetOnError callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	metrics := influxdb.NewMetrics(client)
//	db, err := database.New(dbCfg, drv, database.WithObserver(metrics))
package influxdb
