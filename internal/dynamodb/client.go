package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/flexprice/staffdesk/internal/config"
	ierr "github.com/flexprice/staffdesk/internal/errors"
)

// API is the subset of the DynamoDB client used by the document store
type API interface {
	dynamodb.QueryAPIClient
	dynamodb.DescribeTableAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type Client struct {
	db *dynamodb.Client
}

// NewClient builds a DynamoDB client. A configured endpoint points the client
// at DynamoDB Local or another compatible server.
func NewClient(ctx context.Context, cfg config.DocStoreConfig) (*Client, error) {
	awsCfg, err := config.LoadAwsConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to load AWS configuration for the document store").
			Mark(ierr.ErrSystem)
	}

	db := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{db: db}, nil
}

func (c *Client) DB() *dynamodb.Client {
	return c.db
}
