package contracts

import "context"

type MailerService interface {
	SendBasicEmail(ctx context.Context, recipient, subject, body string) error
}
