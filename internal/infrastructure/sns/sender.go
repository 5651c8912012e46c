package sns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/checkoff-auth/internal/config"
)

// publishAPI is the slice of the SNS client the publisher needs.
type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EmailPublisher hands emails to an SNS topic. A subscriber on the topic does
// the delivery; the recipient travels as the "email" message attribute.
type EmailPublisher struct {
	client   publishAPI
	topicARN string
}

func NewEmailPublisher(ctx context.Context, cfg *config.Config) (*EmailPublisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, errors.New("SNS_TOPIC_ARN is required for the sns transport")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	opts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &EmailPublisher{client: sns.NewFromConfig(awsCfg, opts...), topicARN: cfg.SNSTopicARN}, nil
}

func (p *EmailPublisher) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(htmlBody),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"email": {DataType: aws.String("String"), StringValue: aws.String(to)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish email to %s: %w", p.topicARN, err)
	}
	return nil
}
