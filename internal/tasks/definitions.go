package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	RegisterHandler(SendPartnerEmailTask.TaskID(), SendPartnerEmailTask.HandleExecution)
	RegisterHandler(ReconcilePairsTask.TaskID(), ReconcilePairsTask.HandleExecution)
}
