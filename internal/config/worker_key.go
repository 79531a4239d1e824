package config

type WorkerKeyStruct struct {
	PersistWatchEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistWatchEventsQueue: "persist_watch_events_queue",
}
