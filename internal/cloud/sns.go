package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient sends operator notifications to one topic.
type SNSClient struct {
	svc      snsPublisher
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) (*SNSClient, error) {
	if topicArn == "" {
		return nil, fmt.Errorf("sns topic: %w", ErrNotConfigured)
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

// SendAlert publishes and returns the SNS message id.
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) (string, error) {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	}

	result, err := c.svc.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return aws.ToString(result.MessageId), nil
}

func (c *SNSClient) SendModeAlert(ctx context.Context, mode domain.Mode, at time.Time) (string, error) {
	subject := "Traffic Dashboard: Backend Reachable"
	detail := "Live data has resumed."
	if mode == domain.ModeOffline {
		subject = "Traffic Dashboard: Backend Unreachable"
		detail = "The dashboard is showing simulated data until the backend recovers."
	}
	message := fmt.Sprintf(
		"Connectivity Change\n\n"+
			"Mode: %s\n"+
			"Time: %s\n\n"+
			"%s",
		mode,
		at.Format(time.RFC3339),
		detail,
	)
	return c.SendAlert(ctx, subject, message)
}

func (c *SNSClient) SendEmergencyAlert(ctx context.Context, st domain.SignalState, at time.Time) (string, error) {
	var green []string
	for _, d := range domain.Directions() {
		if st.PerDirection[d] == domain.Green {
			green = append(green, string(d))
		}
	}
	subject := fmt.Sprintf("Traffic Alert: Emergency Mode at %s", st.IntersectionID)
	message := fmt.Sprintf(
		"Emergency Vehicle Priority Active\n\n"+
			"Intersection: %s\n"+
			"Green approaches: %v\n"+
			"Time: %s",
		st.IntersectionID,
		green,
		at.Format(time.RFC3339),
	)
	return c.SendAlert(ctx, subject, message)
}
