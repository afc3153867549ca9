package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"sync"

	"clinic-booking-service/internal/app/contracts"
	drivermailer "clinic-booking-service/internal/app/drivers/mailer"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"
)

type mailerService struct {
	client *drivermailer.SMTPClient
}

var (
	mailerServiceInstance contracts.MailerService
	onceMailerService     sync.Once
)

func NewMailerService(client *drivermailer.SMTPClient) contracts.MailerService {
	onceMailerService.Do(func() {
		mailerServiceInstance = &mailerService{client: client}
	})
	return mailerServiceInstance
}

func (s *mailerService) SendBasicEmail(_ context.Context, recipient, subject, body string) error {
	address := fmt.Sprintf("%s:%d", s.client.Host, s.client.Port)
	message := fmt.Sprintf(constvars.EmailSendBasicEmailSubjectFormat, recipient, subject, body)

	err := smtp.SendMail(address, s.client.Auth, s.client.EmailSender, []string{recipient}, []byte(message))
	if err != nil {
		return exceptions.ErrSMTPSendEmail(err, s.client.Host)
	}
	return nil
}
