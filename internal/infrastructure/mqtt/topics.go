package mqtt

// Topic layout. Every docbind topic lives under topicRoot:
//
//	docbind/system/status              retained service online/offline status
//	docbind/database/{name}/state      retained current connection state
//	docbind/database/{name}/event      every state transition
//	docbind/database/{name}/command    {"action":"connect"} / {"action":"disconnect"}
const topicRoot = "docbind"

// Leaves of the per-database topics.
const (
	leafState   = "state"
	leafEvent   = "event"
	leafCommand = "command"
)

func systemStatusTopic() string {
	return topicRoot + "/system/status"
}

func databaseTopic(name, leaf string) string {
	return topicRoot + "/database/" + name + "/" + leaf
}
