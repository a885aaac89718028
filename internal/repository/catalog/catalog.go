// Package catalog wires the AWS Glue Data Catalog client.
package catalog

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	log "github.com/sirupsen/logrus"
)

type GlueCatalog struct {
	Client *glue.Client
}

func NewGlueCatalog(awsConfig aws.Config) *GlueCatalog {
	client := glue.NewFromConfig(awsConfig)
	if client == nil {
		log.Fatal("Failed to create Glue client")
	}

	return &GlueCatalog{
		Client: client,
	}
}
