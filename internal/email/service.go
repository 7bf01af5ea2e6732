// Package email renders templated messages and delivers them over SMTP from a
// background queue, so request handlers never wait on the mail server.
package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/config"
)

const (
	subjectRegistrationConfirmation  = "Confirm your email address"
	templateRegistrationConfirmation = "registration_confirmation.html"

	defaultQueueSize = 100
)

var (
	ErrQueueFull = errors.New("email queue is full")
	ErrClosed    = errors.New("email service is closed")
)

//go:embed templates/*.html
var templateFS embed.FS

type EmailData interface {
	TemplateFileName() string
	Subject() string
}

type EmailSender interface {
	QueueEmail(to string, data EmailData) error
}

type RegistrationConfirmationData struct {
	UserName     string
	Code         string
	ValidMinutes int
}

func (r RegistrationConfirmationData) TemplateFileName() string {
	return templateRegistrationConfirmation
}

func (r RegistrationConfirmationData) Subject() string {
	return subjectRegistrationConfirmation
}

type emailTask struct {
	to      string
	subject string
	message []byte
}

type EmailService struct {
	from      string
	templates *template.Template
	deliver   func(to string, message []byte) error
	taskQueue chan emailTask
	log       logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEmailService parses the embedded templates. Without an SMTP host the
// service logs each message instead of sending it.
func NewEmailService(cfg config.Email, log logrus.FieldLogger) (*EmailService, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("could not parse email templates: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	s := &EmailService{
		from:      cfg.From,
		templates: templates,
		taskQueue: make(chan emailTask, queueSize),
		log:       log,
	}

	if cfg.SMTPHost == "" {
		s.deliver = func(to string, _ []byte) error {
			log.WithField("to", to).Warn("SMTP_HOST not set, email not sent")
			return nil
		}
		return s, nil
	}

	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.SMTPHost)
	s.deliver = func(to string, message []byte) error {
		return smtp.SendMail(addr, auth, cfg.From, []string{to}, message)
	}
	return s, nil
}

// Start launches the delivery worker. Close stops it after the queue drains.
func (s *EmailService) Start() {
	s.wg.Add(1)
	go s.worker()
}

func (s *EmailService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.taskQueue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *EmailService) worker() {
	defer s.wg.Done()
	for task := range s.taskQueue {
		if err := s.deliver(task.to, task.message); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"to": task.to, "subject": task.subject}).Error("Error sending email")
			continue
		}
		s.log.WithFields(logrus.Fields{"to": task.to, "subject": task.subject}).Debug("email sent")
	}
}

// QueueEmail renders the message right away and hands it to the worker.
// It never blocks: a full queue returns ErrQueueFull.
func (s *EmailService) QueueEmail(to string, data EmailData) error {
	message, err := s.render(to, data)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.taskQueue <- emailTask{to: to, subject: data.Subject(), message: message}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *EmailService) render(to string, data EmailData) ([]byte, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, data.TemplateFileName(), data); err != nil {
		return nil, fmt.Errorf("error executing template: %w", err)
	}

	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", s.from)
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", data.Subject()))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	message.Write(body.Bytes())
	return message.Bytes(), nil
}
