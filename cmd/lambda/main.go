package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/gluepart/internal/config"
	"github.com/zzenonn/gluepart/internal/logging"
	"github.com/zzenonn/gluepart/internal/repository/catalog"
	"github.com/zzenonn/gluepart/internal/service"
)

func main() {
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	if err := cfg.RequireCatalog(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	glueCatalog := catalog.NewGlueCatalog(cfg.AwsConfig)
	eventService := service.NewEventService(glueCatalog.Client, service.OptionsFromConfig(cfg, true))

	log.Infof("Registering partitions for %s.%s", cfg.Database, cfg.Table)
	lambda.Start(eventService.HandleEvent)
}
