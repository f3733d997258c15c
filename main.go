package main

import (
	"github.com/inboxd/app/cmd"
)

// @title Inboxd API
// @version 1.0
// @description Multi-channel inbox backend: WhatsApp, Facebook and Instagram conversations in one place.

// @host  localhost:8000
// @BasePath /api/v1

func main() {
	cmd.StartApp()
}
