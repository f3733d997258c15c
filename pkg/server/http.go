package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/inboxd/app/api/routes"
	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/config"
	"github.com/inboxd/pkg/database"
	"github.com/inboxd/pkg/domains/auth"
	"github.com/inboxd/pkg/domains/channel"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/domains/media"
	"github.com/inboxd/pkg/domains/outbound"
	"github.com/inboxd/pkg/domains/webhook"
	"github.com/inboxd/pkg/middleware"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
	"github.com/inboxd/pkg/utils"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func LaunchHttpServer(appc config.App, security config.Security, hub *broadcast.Hub) {
	log.Println("Starting HTTP Server...")
	gin.SetMode(gin.DebugMode)
	utils.RegisterValidations()

	app := gin.New()
	app.Use(gin.LoggerWithFormatter(func(log gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] - %s \"%s %s %s %d %s\"\n",
			log.TimeStamp.Format("2006-01-02 15:04:05"),
			log.ClientIP,
			log.Method,
			log.Path,
			log.Request.Proto,
			log.StatusCode,
			log.Latency,
		)
	}))
	app.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	app.Use(gin.Recovery())
	app.Use(otelgin.Middleware(appc.Name))
	app.Use(middleware.ClaimIp())
	app.Use(cors.New(cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Origin", "Accept"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	p := ginprom.New(
		ginprom.Engine(app),
		ginprom.Subsystem("gin"),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/swagger/*any"),
	)
	app.Use(p.Instrument())

	db := database.DBClient()
	api := app.Group("/api/v1")

	evolutionClient := evolution.NewClient()
	metaClient := meta.NewClient()

	inbox_repo := inbox.NewRepo(db)
	inbox_service := inbox.NewService(inbox_repo, hub)

	// Auth Routes
	auth_repo := auth.NewRepo(db)
	auth_service := auth.NewService(auth_repo)
	routes.AuthRoutes(api.Group("/auth"), auth_service)

	// Webhook Routes (unauthenticated, providers call these)
	ledger := webhook.NewLedger(db)
	webhook_service := webhook.NewService(ledger, inbox_repo, inbox_service)
	routes.WebhookRoutes(api.Group("/webhooks"), webhook_service, security.MetaVerifyToken)

	// Collaborator Routes
	authed := api.Group("")
	authed.Use(middleware.CheckAuth())

	channel_repo := channel.NewRepo(db)
	channel_service := channel.NewService(channel_repo)
	routes.ChannelRoutes(authed.Group("/channels"), channel_service)

	routes.ConversationRoutes(authed.Group("/conversations"), inbox_service)

	outbound_service := outbound.NewService(inbox_repo, hub, evolutionClient, metaClient)
	routes.MessageRoutes(authed.Group("/messages"), inbox_service, outbound_service)

	media_service := media.NewService(inbox_repo, evolutionClient)
	routes.MediaRoutes(authed.Group(""), media_service)

	routes.EventRoutes(authed.Group("/events"), hub)

	fmt.Println("Server is running on port " + appc.Port)
	if err := app.Run(net.JoinHostPort(appc.Host, appc.Port)); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
