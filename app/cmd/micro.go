package cmd

import (
	"context"

	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/config"
	"github.com/inboxd/pkg/database"
	"github.com/inboxd/pkg/server"
	"github.com/inboxd/pkg/utils"
	"github.com/inboxd/pkg/vault"
	"github.com/sirupsen/logrus"
)

func StartApp() {
	config := config.InitConfig()
	utils.LoadEnv()

	if err := vault.SetKey(config.Security.EncryptionKey); err != nil {
		logrus.Fatalf("encryption key setup failed: %v", err)
	}

	database.InitDB(config.Database)

	hub := broadcast.NewHub()
	if config.Broker.URL != "" {
		// The bridge lives as long as the process; the broker connection
		// is torn down with it on exit.
		if _, err := broadcast.NewBridge(context.Background(), config.Broker.URL, config.Broker.Exchange, hub); err != nil {
			logrus.Fatalf("broker bridge setup failed: %v", err)
		}
	}

	server.LaunchHttpServer(config.App, config.Security, hub)
}
