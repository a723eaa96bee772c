package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/websqlsentinel/sentinel/internal/models"
)

// Timestamp format used in alert bodies, e.g. "28-08-2026 07:45:12 PM"
const alertTimeFormat = "02-01-2006 03:04:05 PM"

// AlertService defines the interface for dispatching security alerts
type AlertService interface {
	SendSecurityAlert(ctx context.Context, user *models.User, attemptTime time.Time, ipAddress string) error
}

// AWSSESAlertService sends security alert emails using AWS SES
type AWSSESAlertService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESAlertService creates a new AWS SES alert service
func NewAWSSESAlertService(region, fromAddress string, logger *slog.Logger) (*AWSSESAlertService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESAlertService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendSecurityAlert notifies the account owner that a malicious login attempt
// against their account was detected and blocked.
func (s *AWSSESAlertService) SendSecurityAlert(ctx context.Context, user *models.User, attemptTime time.Time, ipAddress string) error {
	attemptInfo := fmt.Sprintf("User ID: %s, Email: %s, Time: %s, IP: %s",
		user.ID, user.Email, attemptTime.Format(alertTimeFormat), ipAddress)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1e3a8a; color: white; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .alert { color: #d32f2f; font-weight: bold; }
        .details { background-color: #f9f9f9; padding: 15px; border-radius: 4px; margin: 15px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Security Alert</h1>
        </div>
        <div class="content">
            <p class="alert">⚠️ Suspicious activity has been detected on your account</p>
            <div class="details">
                <p><strong>Activity Details:</strong></p>
                <p>%s</p>
            </div>
            <p>If you did not perform this action, please:</p>
            <ul>
                <li>Change your password immediately</li>
                <li>Review your recent activity</li>
                <li>Contact support if you suspect unauthorized access</li>
            </ul>
        </div>
        <div class="footer">
            <p>This is an automated security alert. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, attemptInfo)

	textBody := fmt.Sprintf(`Security Alert

⚠️  Suspicious activity has been detected on your account.

Activity Details:
%s

If you did not perform this action, please:
- Change your password immediately
- Review your recent activity
- Contact support if you suspect unauthorized access

This is an automated security alert. Please do not reply to this email.
`, attemptInfo)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("🔒 Security Alert: Suspicious Activity Detected"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send security alert via SES",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send alert: %w", err)
	}

	s.logger.Info("security alert sent",
		slog.String("user_id", user.ID),
		slog.String("message_id", *result.MessageId))

	return nil
}

// LogOnlyAlertService records alerts to the application log instead of
// dispatching email. Used when EMAIL_ALERTS_ENABLED is off.
type LogOnlyAlertService struct {
	logger *slog.Logger
}

func NewLogOnlyAlertService(logger *slog.Logger) *LogOnlyAlertService {
	return &LogOnlyAlertService{logger: logger}
}

func (s *LogOnlyAlertService) SendSecurityAlert(_ context.Context, user *models.User, attemptTime time.Time, ipAddress string) error {
	s.logger.Warn("security alert (email disabled)",
		slog.String("user_id", user.ID),
		slog.String("ip_address", ipAddress),
		slog.String("attempt_time", attemptTime.Format(alertTimeFormat)))
	return nil
}
