// Package imap fetches recent inbox messages from non-Gmail mailboxes.
package imap

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"homeops-backend/internal/inbox/domain"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const (
	snippetLength = 200
	dialTimeout   = 30 * time.Second
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func init() {
	// Decode non UTF-8 subjects and bodies
	goimap.CharsetReader = charset.Reader
}

// Credentials identify one IMAP mailbox. Host includes the port.
type Credentials struct {
	Host     string
	Username string
	Password string
}

type Service struct {
	timeout time.Duration
}

func NewService() *Service {
	return &Service{timeout: dialTimeout}
}

// FetchRecent returns up to maxResults of the newest INBOX messages, newest
// first. The mailbox is opened read-only and messages are not marked seen.
func (s *Service) FetchRecent(ctx context.Context, creds Credentials, maxResults int) ([]*domain.Email, error) {
	if creds.Host == "" || creds.Username == "" {
		return nil, domain.ErrNoMailSource
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	c, err := s.login(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	// go-imap has no context support; tear the connection down on cancel
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(maxResults) {
		from = mbox.Messages - uint32(maxResults) + 1
	}
	seqset := new(goimap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchFlags,
		goimap.FetchInternalDate,
		goimap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *goimap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	emails := make([]*domain.Email, 0, maxResults)
	for msg := range messages {
		emails = append(emails, convertMessage(mbox.UidValidity, msg, msg.GetBody(section)))
	}
	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	return emails, nil
}

func (s *Service) login(ctx context.Context, creds Credentials) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := client.DialTLS(creds.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", creds.Host, err)
	}
	c.Timeout = s.timeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	return c, nil
}

func convertMessage(uidValidity uint32, msg *goimap.Message, body io.Reader) *domain.Email {
	email := &domain.Email{
		MessageID:  messageID(uidValidity, msg.Uid),
		ReceivedAt: msg.InternalDate.UTC(),
		Source:     domain.SourceIMAP,
	}

	if env := msg.Envelope; env != nil {
		email.Subject = env.Subject
		email.ThreadID = env.InReplyTo
		if len(env.From) > 0 && env.From[0] != nil {
			email.Sender = env.From[0].Address()
			email.SenderName = env.From[0].PersonalName
		}
		if msg.InternalDate.IsZero() && !env.Date.IsZero() {
			email.ReceivedAt = env.Date.UTC()
		}
	}

	for _, flag := range msg.Flags {
		if flag == goimap.FlaggedFlag {
			email.Priority = "high"
			email.Labels = append(email.Labels, "FLAGGED")
		}
	}

	if body != nil {
		snippet, err := snippetFrom(body)
		if err != nil {
			log.Printf("[IMAP] Could not read body of %s: %v", email.MessageID, err)
		}
		email.Snippet = snippet
	}
	return email
}

// messageID is stable for as long as the mailbox keeps its UIDVALIDITY.
func messageID(uidValidity, uid uint32) string {
	return "imap-" + strconv.FormatUint(uint64(uidValidity), 10) + "-" + strconv.FormatUint(uint64(uid), 10)
}

// snippetFrom returns a short plain-text preview of a MIME message. Plain
// text parts are preferred over HTML ones.
func snippetFrom(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", err
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if plain != "" || html != "" {
				break
			}
			return "", err
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		b, err := io.ReadAll(io.LimitReader(p.Body, 64*1024))
		if err != nil {
			continue
		}
		switch {
		case contentType == "text/plain" && plain == "":
			plain = string(b)
		case contentType == "text/html" && html == "":
			html = htmlTag.ReplaceAllString(string(b), " ")
		}
	}

	text := plain
	if text == "" {
		text = html
	}
	return truncate(strings.Join(strings.Fields(text), " "), snippetLength), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
