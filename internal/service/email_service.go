package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of the SES client the email service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service. It is disabled, and every
// send is a logged no-op, when fromEmail is empty.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{appBaseURL: appBaseURL}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL), nil
}

func newEmailServiceWithClient(client sesAPI, fromEmail, fromName, appBaseURL string) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPasswordResetEmail sends a password reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	resetLink := fmt.Sprintf("%s/restablecer-contrasena?token=%s", s.appBaseURL, resetToken)

	subject := "Restablece tu contraseña"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
	<p>Hola %s,</p>
	<p>Recibimos una solicitud para restablecer la contraseña de tu cuenta.</p>
	<p><a href="%s">Restablecer contraseña</a></p>
	<p style="font-size: 12px; color: #666;">%s</p>
	<p><strong>El enlace vence en 1 hora.</strong></p>
	<p>Si no solicitaste el cambio, ignora este correo.</p>
</body></html>`, html.EscapeString(toName), resetLink, resetLink)

	textBody := fmt.Sprintf(`Hola %s,

Recibimos una solicitud para restablecer la contraseña de tu cuenta.

Abre este enlace para elegir una nueva contraseña:
%s

El enlace vence en 1 hora. Si no solicitaste el cambio, ignora este correo.
`, toName, resetLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail greets a newly registered learner
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	subject := "¡Bienvenido a tu ruta de aprendizaje!"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
	<p>Hola %s,</p>
	<p>Tu cuenta está lista. Elige una ruta, completa lecciones y resuelve prácticas para sumar puntos y subir de nivel.</p>
	<p><a href="%s">Comenzar</a></p>
</body></html>`, html.EscapeString(toName), s.appBaseURL)

	textBody := fmt.Sprintf(`Hola %s,

Tu cuenta está lista. Elige una ruta, completa lecciones y resuelve prácticas para sumar puntos y subir de nivel.

Comenzar: %s
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendPasswordChangedEmail notifies a user that their password changed
func (s *EmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, toName string) error {
	subject := "Tu contraseña fue actualizada"
	textBody := fmt.Sprintf(`Hola %s,

La contraseña de tu cuenta acaba de cambiar. Si no fuiste tú, restablécela de inmediato desde %s.
`, toName, s.appBaseURL)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
	<p>Hola %s,</p>
	<p>La contraseña de tu cuenta acaba de cambiar. Si no fuiste tú, restablécela de inmediato desde <a href="%s">%s</a>.</p>
</body></html>`, html.EscapeString(toName), s.appBaseURL, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): %q to %s", subject, toEmail)
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("Email sent: to=%s, subject=%q, message_id=%s", toEmail, subject, messageID)
	return nil
}
