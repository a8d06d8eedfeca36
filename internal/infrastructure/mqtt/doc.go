// Package mqtt connects docbind to an MQTT broker.
//
// It publishes every connection state transition of the database
// (StatusPublisher) and accepts connect/disconnect commands
// (CommandListener). The service itself is announced on a retained status
// topic, with a Last Will so a crash shows up as offline.
//
// # Topics
//
//	docbind/system/status              retained service online/offline status
//	docbind/database/{name}/state      retained current connection state
//	docbind/database/{name}/event      every state transition
//	docbind/database/{name}/command    {"action":"connect"} / {"action":"disconnect"}
//
// Anyone allowed to publish on the command topic can connect and disconnect
// the database, so restrict it with broker ACLs and enable TLS for
// non-local brokers.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	status := mqtt.NewStatusPublisher(client, 1, logger)
//	client.SetOnConnect(status.Republish)
//	db, err := database.New(dbCfg, drv, database.WithObserver(status))
package mqtt
