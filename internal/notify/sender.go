package notify

import (
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"marketplace-service/pkg/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Email is a rendered notification ready for delivery
type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Sender delivers rendered notifications over some transport
type Sender interface {
	Send(email Email) error
}

// NewSender builds the sender named by the notify transport config
func NewSender(cfg *config.Config, log *zap.Logger) (Sender, error) {
	switch cfg.Notify.Transport {
	case "kafka":
		return NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case "smtp":
		return &SMTPSender{cfg: cfg.SMTP}, nil
	case "log":
		return &LogSender{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.Notify.Transport)
	}
}

// KafkaSender publishes e-mail jobs to a Kafka topic for an external
// mail worker
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSender creates a synchronous producer with full-quorum acks
func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaSender{producer: producer, topic: topic}, nil
}

func (s *KafkaSender) Send(email Email) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return err
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

// Close shuts the underlying producer down
func (s *KafkaSender) Close() error {
	return s.producer.Close()
}

// SMTPSender delivers mail directly over SMTP
type SMTPSender struct {
	cfg config.SMTPConfig
}

func (s *SMTPSender) Send(email Email) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, email.To, s.message(email))
}

// message assembles the mail payload; recipients appear in the To
// header as well as on the envelope.
func (s *SMTPSender) message(email Email) []byte {
	return []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + strings.Join(email.To, ", ") + "\r\n" +
		"Subject: " + email.Subject + "\r\n" +
		"\r\n" +
		email.Body + "\r\n")
}

// LogSender writes notifications to the log, used in development
type LogSender struct {
	log *zap.Logger
}

func (s *LogSender) Send(email Email) error {
	s.log.Info("Notification",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Body))
	return nil
}
