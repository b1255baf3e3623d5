package imap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// Config describes one polled account. Provider "gmail" switches folder
// resolution to the localized All Mail list plus SPECIAL-USE discovery.
type Config struct {
	Host         string
	Username     string
	Password     string
	Provider     string
	SentinelFlag string
	DeleteAfter  bool
}

// Mailbox adapts one IMAP account to the poller. A connection is dialed
// lazily on the first fetch and reused until Close.
type Mailbox struct {
	cfg    Config
	logger *slog.Logger
	client *imapclient.Client
}

func NewMailbox(cfg Config, logger *slog.Logger) *Mailbox {
	return &Mailbox{cfg: cfg, logger: logger}
}

func (m *Mailbox) Name() string {
	return m.cfg.Username + "@" + m.cfg.Host
}

func (m *Mailbox) connect() (*imapclient.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	client, err := imapclient.DialTLS(m.cfg.Host, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "imap dial", err)
	}
	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	m.client = client
	return client, nil
}

// Configured reports whether the account carries enough settings to dial.
func (m *Mailbox) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

// Check exercises the account's credentials with a fresh dial and login.
func (m *Mailbox) Check(_ context.Context) error {
	client, err := imapclient.DialTLS(m.cfg.Host, nil)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "imap dial", err)
	}
	defer client.Close()
	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}
	return client.Logout().Wait()
}

func (m *Mailbox) Close() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Logout().Wait()
	m.client.Close()
	m.client = nil
	return err
}

// FetchCandidates selects the provider-appropriate folder, searches unread
// recent messages, and returns them with flags and decoded attachments.
// Fetching runs in two phases: envelope plus BODYSTRUCTURE for every hit,
// then full bodies only for messages whose structure carries a document
// part. Newsletters and text-only mail never cross the wire in full.
func (m *Mailbox) FetchCandidates(ctx context.Context, since time.Time) ([]domain.MailMessage, error) {
	client, err := m.connect()
	if err != nil {
		return nil, err
	}

	folder := "INBOX"
	if m.cfg.Provider == "gmail" {
		folder, err = resolveAllMail(client)
		if err != nil {
			return nil, fmt.Errorf("resolve gmail all mail: %w", err)
		}
	}
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   since,
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	scanOptions := &imap.FetchOptions{
		UID:           true,
		Envelope:      true,
		Flags:         true,
		BodyStructure: &imap.FetchItemBodyStructure{},
	}
	scans, err := client.Fetch(imap.UIDSetNum(uids...), scanOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch structure: %w", err)
	}

	messages := make([]domain.MailMessage, 0, len(scans))
	bodyIndex := make(map[imap.UID]int)
	var bodyUIDs []imap.UID
	for _, buf := range scans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := domain.MailMessage{
			UID: uint32(buf.UID),
		}
		if buf.Envelope != nil {
			msg.MessageID = buf.Envelope.MessageID
			msg.Subject = buf.Envelope.Subject
			if len(buf.Envelope.From) > 0 {
				msg.From = buf.Envelope.From[0].Addr()
			}
		}
		for _, flag := range buf.Flags {
			msg.Flags = append(msg.Flags, string(flag))
		}
		if hasDocumentPart(buf.BodyStructure) {
			bodyIndex[buf.UID] = len(messages)
			bodyUIDs = append(bodyUIDs, buf.UID)
		}
		messages = append(messages, msg)
	}
	if len(bodyUIDs) == 0 {
		return messages, nil
	}

	bodySection := &imap.FetchItemBodySection{}
	bodyOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}
	buffers, err := client.Fetch(imap.UIDSetNum(bodyUIDs...), bodyOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch bodies: %w", err)
	}
	for _, buf := range buffers {
		idx, ok := bodyIndex[buf.UID]
		if !ok {
			continue
		}
		raw := buf.FindBodySection(bodySection)
		if len(raw) == 0 {
			continue
		}
		attachments, err := decodeAttachments(raw)
		if err != nil {
			m.logger.Warn("mail_attachment_decode_failed", "mailbox", m.Name(), "uid", uint32(buf.UID), "error", err)
		}
		messages[idx].Attachments = attachments
	}
	return messages, nil
}

// hasDocumentPart walks a BODYSTRUCTURE looking for a part worth pulling:
// an accepted document type that is either a declared attachment or a
// non-text part. The inline text/plain body every message carries does
// not count.
func hasDocumentPart(structure imap.BodyStructure) bool {
	if structure == nil {
		return false
	}
	found := false
	structure.Walk(func(_ []int, part imap.BodyStructure) bool {
		if found {
			return false
		}
		mediaType := strings.ToLower(part.MediaType())
		if !domain.AllowedMailMime(mediaType) {
			return true
		}
		if disp := part.Disposition(); disp != nil && strings.EqualFold(disp.Value, "attachment") {
			found = true
		} else if !strings.HasPrefix(mediaType, "text/") {
			found = true
		}
		return !found
	})
	return found
}

// Finalize marks a message processed: star plus sentinel flag, then either
// deletion or just clearing unread, per configuration.
func (m *Mailbox) Finalize(_ context.Context, uid uint32) error {
	client, err := m.connect()
	if err != nil {
		return err
	}

	set := imap.UIDSetNum(imap.UID(uid))
	markFlags := []imap.Flag{imap.FlagFlagged, imap.FlagSeen}
	if m.cfg.SentinelFlag != "" {
		markFlags = append(markFlags, imap.Flag(m.cfg.SentinelFlag))
	}
	if err := client.Store(set, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  markFlags,
	}, nil).Close(); err != nil {
		return fmt.Errorf("imap store flags: %w", err)
	}

	if m.cfg.DeleteAfter {
		if err := client.Store(set, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagDeleted},
		}, nil).Close(); err != nil {
			return fmt.Errorf("imap mark deleted: %w", err)
		}
		if err := client.Expunge().Close(); err != nil {
			return fmt.Errorf("imap expunge: %w", err)
		}
	}
	return nil
}

func decodeAttachments(raw []byte) ([]domain.MailAttachment, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	var attachments []domain.MailAttachment
	var firstErr error
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, _ := header.Filename()
		contentType, _, _ := header.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read attachment %s: %w", filename, err)
			}
			continue
		}
		attachments = append(attachments, domain.MailAttachment{
			Filename: filename,
			MimeType: contentType,
			Data:     data,
		})
	}
	return attachments, firstErr
}
