package main

import (
	"newsvault/cmd/handlers"
	"newsvault/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
