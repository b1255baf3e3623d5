package domain

// MailAttachment is one decoded attachment from a polled message.
type MailAttachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// MailMessage is the poller's view of a mailbox message. MessageID is the
// globally unique identifier used for dedup; messages without one are
// skipped because they cannot be safely deduplicated.
type MailMessage struct {
	UID         uint32
	MessageID   string
	Subject     string
	From        string
	Flags       []string
	Attachments []MailAttachment
}

// AllowedMailMime reports whether an attachment type is accepted from mail.
// Image types are deliberately excluded; images only enter through direct
// upload paths.
func AllowedMailMime(mimeType string) bool {
	switch mimeType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain",
		"text/csv",
		"application/rtf",
		"text/rtf":
		return true
	}
	return false
}
