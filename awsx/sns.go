package awsx

import (
	"checkout-service/models"
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, eventType string, message []byte) error
}

type SNSClient struct {
	client *sns.Client
}

// LoadAWSConfig loads the default AWS SDK configuration.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish publishes a raw message to the given SNS topic ARN with the event
// type as a filterable message attribute.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, eventType string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(eventType),
			},
		},
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}

// PaymentEventPublisher fans payment events out through SNS.
type PaymentEventPublisher struct {
	publisher SNSPublisher
	topicARN  string
}

func NewPaymentEventPublisher(publisher SNSPublisher, topicARN string) *PaymentEventPublisher {
	return &PaymentEventPublisher{publisher: publisher, topicARN: topicARN}
}

func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return p.publisher.Publish(ctx, p.topicARN, event.Type, data)
}
