package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"time"

	"minimail/config"
	"minimail/mailfmt"
	"minimail/metrics"
	"minimail/models"
	"minimail/utils"

	"golang.org/x/sync/errgroup"
)

// DefaultInboxLimit is used when neither the caller nor the config sets one
const DefaultInboxLimit = 25

// MaxInboxLimit caps caller supplied limits
const MaxInboxLimit = 100

// messageCacheSize bounds the raw messages kept for repeat views
const messageCacheSize = 64

// DialFunc opens a fresh MailSource for one request
type DialFunc func() (MailSource, error)

// Mailer ties the IMAP source, the SMTP sender and the mailfmt
// normalizer and composer together
type Mailer struct {
	dial    DialFunc
	sender  Sender
	config  *config.Config
	workers int
	cache   *utils.MemoryCache // raw single-message fetches, may be nil
}

// NewMailer creates a Mailer over the given transports
func NewMailer(cfg *config.Config, dial DialFunc, sender Sender) *Mailer {
	return &Mailer{
		dial:    dial,
		sender:  sender,
		config:  cfg,
		workers: runtime.GOMAXPROCS(0),
	}
}

// NewMailerFromConfig creates a Mailer that talks to the configured servers
func NewMailerFromConfig(cfg *config.Config) *Mailer {
	dial := func() (MailSource, error) {
		return NewClient(&cfg.IMAP)
	}
	m := NewMailer(cfg, dial, NewSMTPClient(&cfg.SMTP))
	if cfg.Inbox.CacheTTL > 0 {
		m.WithCache(utils.NewMemoryCache(time.Duration(cfg.Inbox.CacheTTL)*time.Second, messageCacheSize))
	}
	return m
}

// WithCache reuses single-message fetches, so a message view followed
// by attachment downloads costs one IMAP round trip
func (m *Mailer) WithCache(cache *utils.MemoryCache) *Mailer {
	m.cache = cache
	return m
}

func (m *Mailer) folder() string {
	if m.config.IMAP.Folder == "" {
		return "INBOX"
	}
	return m.config.IMAP.Folder
}

// effectiveLimit clamps limit to (0, MaxInboxLimit], falling back to the config
func (m *Mailer) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = m.config.Inbox.Limit
	}
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	if limit > MaxInboxLimit {
		limit = MaxInboxLimit
	}
	return limit
}

// ListInbox returns up to limit summaries, newest (highest UID) first.
// A message that cannot be parsed yields a row marked Failed instead of
// failing the listing.
func (m *Mailer) ListInbox(ctx context.Context, limit int) ([]models.MessageSummary, error) {
	limit = m.effectiveLimit(limit)

	src, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	uids, err := src.SearchUIDs(m.folder())
	if err != nil {
		return nil, err
	}
	uids = newestFirst(uids, limit)

	raws, err := src.FetchRaw(m.folder(), uids)
	if err != nil {
		return nil, err
	}

	// Drop UIDs expunged between search and fetch
	present := uids[:0]
	for _, uid := range uids {
		if _, ok := raws[uid]; ok {
			present = append(present, uid)
		}
	}

	summaries := make([]models.MessageSummary, len(present))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, uid := range present {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = summarize(strconv.FormatUint(uint64(uid), 10), raws[uid])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	utils.Log.Debug("Listed %d of %d messages in %s", len(summaries), len(uids), m.folder())
	return summaries, nil
}

// newestFirst sorts descending and keeps at most limit UIDs
func newestFirst(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func summarize(uid string, raw []byte) models.MessageSummary {
	msg, err := mailfmt.Normalize(uid, raw)
	metrics.Normalized(err)
	if err != nil {
		utils.Log.WithField("uid", uid).Warn("Skipping unreadable message: %v", err)
		return models.MessageSummary{
			UID:     uid,
			Subject: mailfmt.NoSubject,
			Failed:  true,
			Error:   err.Error(),
		}
	}
	return models.MessageSummary{
		UID:            msg.UID,
		From:           msg.From,
		Subject:        msg.Subject,
		Date:           msg.Date,
		Snippet:        mailfmt.Summarize(msg),
		HasAttachments: msg.HasAttachments(),
	}
}

// fetchOne returns the raw bytes of a single message
func (m *Mailer) fetchOne(uid string) ([]byte, error) {
	n, err := parseUID(uid)
	if err != nil {
		return nil, err
	}

	key := m.folder() + "/" + strconv.FormatUint(uint64(n), 10)
	if m.cache != nil {
		if raw, ok := m.cache.Get(key); ok {
			return raw.([]byte), nil
		}
	}

	src, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	raws, err := src.FetchRaw(m.folder(), []uint32{n})
	if err != nil {
		return nil, err
	}
	raw, ok := raws[n]
	if !ok {
		return nil, fmt.Errorf("uid %d: %w", n, ErrMessageNotFound)
	}
	if m.cache != nil {
		m.cache.Set(key, raw)
	}
	return raw, nil
}

// GetMessage fetches and normalizes one message
func (m *Mailer) GetMessage(uid string) (*models.NormalizedMessage, error) {
	raw, err := m.fetchOne(uid)
	if err != nil {
		return nil, err
	}
	msg, err := mailfmt.Normalize(uid, raw)
	metrics.Normalized(err)
	return msg, err
}

// GetAttachment fetches one message and extracts the attachment at index
func (m *Mailer) GetAttachment(uid string, index int) (*models.AttachmentContent, error) {
	raw, err := m.fetchOne(uid)
	if err != nil {
		return nil, err
	}

	att, err := mailfmt.ExtractAttachment(raw, index)
	if err != nil {
		var perr *mailfmt.ParseError
		if errors.As(err, &perr) {
			perr.UID = uid
		}
		return nil, err
	}
	return att, nil
}

// Send fills in the configured sender, composes and transmits req
func (m *Mailer) Send(req models.ComposeRequest) (*models.ComposedMessage, error) {
	req.From = m.config.Identity.Email
	req.FromName = m.config.Identity.Name

	msg, err := mailfmt.Compose(req)
	if err != nil {
		return nil, err
	}

	err = m.sender.Send(req.From, msg.Recipients, msg.Raw)
	metrics.Sent(err)
	if err != nil {
		return nil, err
	}

	utils.Log.WithFields(map[string]interface{}{
		"message_id":  msg.MessageID,
		"attachments": len(req.Attachments),
	}).Info("Email sent to %v", msg.Recipients)
	return msg, nil
}
