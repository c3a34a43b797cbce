package main

import (
	"github.com/fitgraph/backend/internal/server"
	"github.com/fitgraph/backend/internal/util"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
