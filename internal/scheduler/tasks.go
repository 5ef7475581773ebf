package scheduler

import "github.com/hibiken/asynq"

const TaskIngestionPoll = "ingestion.poll"

const TaskLeadsAutoAssign = "leads.autoassign"

// Both tasks are payload-free triggers; the handlers re-read everything they
// need from the database on each run.

func NewIngestionPollTask() *asynq.Task {
	return asynq.NewTask(TaskIngestionPoll, nil)
}

func NewLeadsAutoAssignTask() *asynq.Task {
	return asynq.NewTask(TaskLeadsAutoAssign, nil)
}
