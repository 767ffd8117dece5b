package main

import (
	"aidaily/cmd/handlers"
	"aidaily/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
