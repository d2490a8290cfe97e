// handlers/api/client.go
package api

import (
	"crypto/tls"
	"io"
	"net"
	"time"

	"minimail/config"
	"minimail/metrics"
	"minimail/utils"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const imapTimeout = 30 * time.Second

// MailSource reads raw messages from a mailbox. Implementations are
// used by a single goroutine at a time.
type MailSource interface {
	// SearchUIDs returns every UID in folder
	SearchUIDs(folder string) ([]uint32, error)
	// FetchRaw returns the full RFC 5322 bytes of each UID that still exists
	FetchRaw(folder string, uids []uint32) (map[uint32][]byte, error)
	Close() error
}

// Client represents an IMAP client wrapper
type Client struct {
	client   *client.Client
	username string
}

type imapDialer func(addr string) (*client.Client, error)

// NewClient connects and logs in with the configured account. Without
// use_starttls the connection uses implicit TLS.
func NewClient(cfg *config.IMAPConfig) (*Client, error) {
	tlsConfig := &tls.Config{ServerName: cfg.Server}
	dialer := &net.Dialer{Timeout: imapTimeout}

	dial := func(addr string) (*client.Client, error) {
		return client.DialWithDialerTLS(dialer, addr, tlsConfig)
	}
	if cfg.UseSTARTTLS {
		dial = func(addr string) (*client.Client, error) {
			c, err := client.DialWithDialer(dialer, addr)
			if err != nil {
				return nil, err
			}
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Logout()
				return nil, err
			}
			return c, nil
		}
	}
	return newClient(cfg, dial)
}

func newClient(cfg *config.IMAPConfig, dial imapDialer) (*Client, error) {
	start := time.Now()
	addr := cfg.Address()

	c, err := dial(addr)
	if err != nil {
		utils.Log.Error("IMAP connect %s failed: %v", addr, err)
		metrics.Transport("imap_login", start, err)
		return nil, &TransportError{Op: "imap connect", Err: err}
	}
	c.Timeout = imapTimeout

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Logout()
		utils.Log.Error("IMAP login %s as %s failed: %v", addr, cfg.Username, err)
		metrics.Transport("imap_login", start, err)
		return nil, &TransportError{Op: "imap login", Err: err}
	}
	metrics.Transport("imap_login", start, nil)

	return &Client{client: c, username: cfg.Username}, nil
}

// Close logs out and closes the IMAP connection
func (c *Client) Close() error {
	return c.client.Logout()
}

// SearchUIDs selects folder read-only and returns all of its UIDs
func (c *Client) SearchUIDs(folder string) (uids []uint32, err error) {
	defer func(start time.Time) { metrics.Transport("imap_search", start, err) }(time.Now())

	mbox, err := c.client.Select(folder, true)
	if err != nil {
		return nil, &TransportError{Op: "imap select " + folder, Err: err}
	}
	if mbox.Messages == 0 {
		return []uint32{}, nil
	}

	uids, err = c.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, &TransportError{Op: "imap search", Err: err}
	}
	return uids, nil
}

// FetchRaw downloads BODY.PEEK[] for each UID, leaving the \Seen flag
// untouched. UIDs the server no longer has are absent from the result.
func (c *Client) FetchRaw(folder string, uids []uint32) (raw map[uint32][]byte, err error) {
	defer func(start time.Time) { metrics.Transport("imap_fetch", start, err) }(time.Now())

	raw = make(map[uint32][]byte, len(uids))
	if len(uids) == 0 {
		return raw, nil
	}

	if _, err := c.client.Select(folder, true); err != nil {
		return nil, &TransportError{Op: "imap select " + folder, Err: err}
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			utils.Log.Warn("IMAP fetch: no body for UID %d", msg.Uid)
			continue
		}
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			utils.Log.Warn("IMAP fetch: reading UID %d: %v", msg.Uid, readErr)
			continue
		}
		raw[msg.Uid] = data
	}

	if err := <-done; err != nil {
		return nil, &TransportError{Op: "imap fetch", Err: err}
	}
	return raw, nil
}
