package ingest

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/autou/mailtriage/pkg/logger"
)

// IMAPConfig locates the mailbox to ingest from. Host, User and Password
// are required; everything else has working defaults.
type IMAPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Folder   string
	// StartTLS upgrades a plaintext connection instead of dialing TLS on 993.
	StartTLS bool
	// MarkSeen flags fetched messages as read so the next run skips them.
	MarkSeen bool
}

// IMAPClient fetches unseen messages from a single mailbox. Each fetch is a
// fresh connection; there is no long-lived IMAP session to babysit.
type IMAPClient struct {
	cfg IMAPConfig
	log *zap.Logger
}

// NewIMAPClient validates the mailbox configuration.
func NewIMAPClient(cfg IMAPConfig) (*IMAPClient, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, stderrors.New("ingest: imap host, user and password are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	return &IMAPClient{cfg: cfg, log: logger.WithModule("ingest")}, nil
}

// FetchUnseen returns up to limit unseen messages, newest first.
func (c *IMAPClient) FetchUnseen(_ context.Context, limit int) ([]RawMessage, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	var client *imapclient.Client
	var err error
	if c.cfg.StartTLS {
		client, err = imapclient.DialStartTLS(addr, nil)
	} else {
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: connect %s: %w", addr, err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := client.Login(c.cfg.User, c.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("ingest: login %s: %w", c.cfg.User, err)
	}
	if _, err := client.Select(c.cfg.Folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("ingest: select %s: %w", c.cfg.Folder, err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("ingest: search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	})

	var messages []RawMessage
	var fetched []imap.UID
	for {
		next := fetchCmd.Next()
		if next == nil {
			break
		}
		buf, err := next.Collect()
		if err != nil {
			c.log.Warn("message fetch failed", zap.Error(err))
			continue
		}

		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			continue
		}

		msg := ParseMessage(raw, fmt.Sprintf("%s:%d", c.cfg.Folder, buf.UID))
		if msg.ReceivedAt == nil && !buf.InternalDate.IsZero() {
			date := buf.InternalDate
			msg.ReceivedAt = &date
		}
		messages = append(messages, msg)
		fetched = append(fetched, buf.UID)
	}
	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("ingest: fetch: %w", err)
	}

	if c.cfg.MarkSeen && len(fetched) > 0 {
		storeCmd := client.Store(imap.UIDSetNum(fetched...), &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil)
		if err := storeCmd.Close(); err != nil {
			c.log.Warn("could not mark messages seen", zap.Error(err))
		}
	}

	// newest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
