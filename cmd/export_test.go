package cmd

var (
	ServeFlags       = serveFlags
	SchedulerConfig  = schedulerConfig
	SchedulerEnabled = schedulerEnabled
)
