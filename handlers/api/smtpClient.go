package api

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"minimail/config"
	"minimail/mailfmt"
	"minimail/metrics"
	"minimail/utils"
)

const smtpTimeout = 30 * time.Second

// Sender transmits an already encoded message
type Sender interface {
	Send(from string, to []string, raw []byte) error
}

// SMTPClient handles email sending
type SMTPClient struct {
	server   string
	port     int
	username string
	password string
	starttls bool
	timeout  time.Duration
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(cfg *config.SMTPConfig) *SMTPClient {
	return &SMTPClient{
		server:   cfg.Server,
		port:     cfg.GetPort(),
		username: cfg.Username,
		password: cfg.Password,
		starttls: cfg.UseSTARTTLS(),
		timeout:  smtpTimeout,
	}
}

// Send delivers raw to every recipient in one SMTP transaction
func (c *SMTPClient) Send(from string, to []string, raw []byte) (err error) {
	start := time.Now()
	defer func() { metrics.Transport("smtp_send", start, err) }()

	if len(to) == 0 {
		return &TransportError{Op: "smtp send", Err: fmt.Errorf("no recipients")}
	}

	client, err := c.dial(mailfmt.SenderDomain(from))
	if err != nil {
		utils.Log.Error("SMTP connect %s:%d failed: %v", c.server, c.port, err)
		return err
	}
	defer client.Close()

	if err := c.transact(client, from, to, raw); err != nil {
		utils.Log.Error("SMTP send via %s:%d failed: %v", c.server, c.port, err)
		return err
	}

	utils.Log.WithFields(map[string]interface{}{
		"recipients": len(to),
		"bytes":      len(raw),
	}).Info("SMTP message accepted by %s", c.server)
	return nil
}

// dial opens the connection with implicit TLS, or plain followed by
// STARTTLS, and says hello
func (c *SMTPClient) dial(helo string) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.server, c.port)
	tlsConfig := &tls.Config{ServerName: c.server}
	dialer := &net.Dialer{Timeout: c.timeout}

	var conn net.Conn
	var err error
	if c.starttls {
		conn, err = dialer.Dial("tcp", addr)
	} else {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	}
	if err != nil {
		return nil, &TransportError{Op: "smtp connect", Err: err}
	}
	conn.SetDeadline(time.Now().Add(c.timeout))

	client, err := smtp.NewClient(conn, c.server)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "smtp greeting", Err: err}
	}
	if err := client.Hello(helo); err != nil {
		client.Close()
		return nil, &TransportError{Op: "smtp hello", Err: err}
	}

	if c.starttls {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, &TransportError{Op: "smtp starttls", Err: err}
		}
	}
	return client, nil
}

// transact authenticates when credentials are configured and runs
// MAIL, RCPT and DATA
func (c *SMTPClient) transact(client *smtp.Client, from string, to []string, raw []byte) error {
	if c.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", c.username, c.password, c.server)
			if err := client.Auth(auth); err != nil {
				return &TransportError{Op: "smtp auth", Err: err}
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return &TransportError{Op: "smtp mail from", Err: err}
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return &TransportError{Op: "smtp rcpt to " + rcpt, Err: err}
		}
	}

	w, err := client.Data()
	if err != nil {
		return &TransportError{Op: "smtp data", Err: err}
	}
	if _, err := bytes.NewReader(raw).WriteTo(w); err != nil {
		w.Close()
		return &TransportError{Op: "smtp data", Err: err}
	}
	if err := w.Close(); err != nil {
		return &TransportError{Op: "smtp data", Err: err}
	}

	if err := client.Quit(); err != nil {
		return &TransportError{Op: "smtp quit", Err: err}
	}
	return nil
}
