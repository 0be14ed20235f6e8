package gmail

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"homeops-backend/internal/inbox/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = domain.TokenUpdateFunc

// maxListResults is the Gmail API page size ceiling.
const maxListResults = 500

// metadataHeaders are the only headers scoring needs.
var metadataHeaders = []string{"From", "Subject", "Date"}

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	mu       sync.Mutex
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return srv, nil
}

// FetchRecent lists the newest inbox messages and fetches their metadata.
// Messages that fail to load are skipped; the rest are returned newest first.
func (s *Service) FetchRecent(ctx context.Context, accessToken, refreshToken string, maxResults int, onTokenRefresh TokenUpdateFunc) ([]*domain.Email, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 {
		maxResults = 50
	}
	if maxResults > maxListResults {
		maxResults = maxListResults
	}

	resp, err := srv.Users.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return s.fetchMetadata(ctx, srv, ids), nil
}

// FetchByIDs loads metadata for specific messages, e.g. ones named in a
// history notification.
func (s *Service) FetchByIDs(ctx context.Context, accessToken, refreshToken string, ids []string, onTokenRefresh TokenUpdateFunc) ([]*domain.Email, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}
	return s.fetchMetadata(ctx, srv, ids), nil
}

// AddedSince returns ids of inbox messages added after startHistoryID along
// with the mailbox's current history id.
func (s *Service) AddedSince(ctx context.Context, accessToken, refreshToken string, startHistoryID uint64, onTokenRefresh TokenUpdateFunc) ([]string, uint64, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]bool)
	var ids []string
	latest := startHistoryID
	call := srv.Users.History.List("me").
		StartHistoryId(startHistoryID).
		HistoryTypes("messageAdded").
		LabelId("INBOX")
	err = call.Pages(ctx, func(page *gmail.ListHistoryResponse) error {
		latest = max(latest, page.HistoryId)
		for _, h := range page.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil || seen[added.Message.Id] {
					continue
				}
				seen[added.Message.Id] = true
				ids = append(ids, added.Message.Id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list history: %w", err)
	}
	return ids, latest, nil
}

func (s *Service) fetchMetadata(ctx context.Context, srv *gmail.Service, ids []string) []*domain.Email {
	type emailResult struct {
		email *domain.Email
		err   error
	}

	results := make(chan emailResult, len(ids))
	semaphore := make(chan struct{}, 10) // Max 10 concurrent requests

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(msgID string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := srv.Users.Messages.Get("me", msgID).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(ctx).
				Do()
			if err != nil {
				results <- emailResult{err: fmt.Errorf("message %s: %w", msgID, err)}
				return
			}
			results <- emailResult{email: convertGmailMessage(msg)}
		}(id)
	}
	wg.Wait()
	close(results)

	emails := make([]*domain.Email, 0, len(ids))
	for r := range results {
		if r.err != nil {
			log.Printf("[Gmail] Skipping message: %v", r.err)
			continue
		}
		emails = append(emails, r.email)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	return emails
}

// Watch sets up push notifications for the user's mailbox and returns the
// history id the notifications start from.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken string, topicName string, onTokenRefresh TokenUpdateFunc) (uint64, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return 0, err
	}

	// Only one push client is allowed per mailbox
	_ = srv.Users.Stop("me").Context(ctx).Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch started on %s, expiration %d, historyId %d", topicName, resp.Expiration, resp.HistoryId)

	return resp.HistoryId, nil
}

// Helper functions

func convertGmailMessage(msg *gmail.Message) *domain.Email {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	from := getHeader(headers, "From")

	return &domain.Email{
		MessageID:  msg.Id,
		ThreadID:   msg.ThreadId,
		Subject:    getHeader(headers, "Subject"),
		Snippet:    strings.Join(strings.Fields(msg.Snippet), " "),
		Sender:     senderAddress(from),
		SenderName: senderName(from),
		Priority:   priorityFromLabels(msg.LabelIds),
		Labels:     msg.LabelIds,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
		Source:     domain.SourceGmail,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// senderAddress extracts the address from "Name <email@example.com>".
func senderAddress(from string) string {
	start := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}

func senderName(from string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		return strings.Trim(strings.TrimSpace(from[:idx]), `"`)
	}
	return ""
}

// priorityFromLabels maps Gmail's importance marker to a priority. Other
// messages are left for the categorizer.
func priorityFromLabels(labels []string) string {
	if hasLabel(labels, "IMPORTANT") {
		return "high"
	}
	return ""
}

func hasLabel(labels []string, labelID string) bool {
	for _, l := range labels {
		if l == labelID {
			return true
		}
	}
	return false
}
