package imap

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// allMailNames lists known localized spellings of Gmail's All Mail folder.
// Discovery via SPECIAL-USE is the fallback when none of them exists.
var allMailNames = []string{
	"[Gmail]/All Mail",
	"[Google Mail]/All Mail",
	"[Gmail]/Alle Nachrichten",
	"[Google Mail]/Alle Nachrichten",
	"[Gmail]/Tous les messages",
	"[Gmail]/Todos",
	"[Gmail]/Tutti i messaggi",
	"[Gmail]/Вся почта",
	"[Gmail]/すべてのメール",
}

func resolveAllMail(client *imapclient.Client) (string, error) {
	mailboxes, err := client.List("", "*", nil).Collect()
	if err != nil {
		return "", fmt.Errorf("imap list: %w", err)
	}

	known := make(map[string]bool, len(mailboxes))
	for _, mbox := range mailboxes {
		known[mbox.Mailbox] = true
	}
	for _, name := range allMailNames {
		if known[name] {
			return name, nil
		}
	}

	// SPECIAL-USE: the \All attribute marks the archive mailbox.
	for _, mbox := range mailboxes {
		for _, attr := range mbox.Attrs {
			if attr == imap.MailboxAttrAll {
				return mbox.Mailbox, nil
			}
		}
	}
	return "", fmt.Errorf("no all-mail folder found among %d mailboxes", len(mailboxes))
}
