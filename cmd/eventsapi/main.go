package main

import (
	"eventmanager/cmd/eventsapi/cmd"

	_ "eventmanager/docs"
)

// @title Event Manager API
// @version 1.0
// @description CRUD API for events with filtering, pagination, speakers and location conflict checks.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cmd.Execute()
}
