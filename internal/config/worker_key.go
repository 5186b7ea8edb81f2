package config

type WorkerKeyStruct struct {
	PersistReportsQueue string
	PersistDraftsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistReportsQueue: "persist_reports_queue",
	PersistDraftsQueue:  "persist_drafts_queue",
}
