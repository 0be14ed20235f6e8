package usecase

import (
	"context"
	"fmt"
	"strings"

	"homeops-backend/internal/assistant/domain"
	inboxdomain "homeops-backend/internal/inbox/domain"
	"homeops-backend/pkg/chroma"

	"github.com/rs/zerolog"
)

const (
	feedContext      = 8
	retrievedContext = 5
	maxMessageChars  = 2000
)

const systemPrompt = `You are a household assistant that helps a busy family stay on top of their inbox.
Answer using only the emails listed in the context. Each email shows its category, priority and a
mental load score from 0 to 100 where higher means more demanding. Mention dates and deadlines
when they appear. If the context does not contain the answer, say so briefly.`

type AssistantUsecase interface {
	Chat(ctx context.Context, userID, message string) (*domain.Reply, error)
}

// EmailSource is the part of the inbox usecase the assistant reads.
type EmailSource interface {
	GetFeed(ctx context.Context, userID string, limit, offset int) ([]*inboxdomain.ScoredEmail, error)
	GetEmail(ctx context.Context, userID, messageID string) (*inboxdomain.ScoredEmail, error)
}

type Retriever interface {
	Search(ctx context.Context, userID, query string, limit int) ([]chroma.Match, error)
}

type Responder interface {
	Chat(ctx context.Context, systemPrompt, message string) (string, error)
}

type assistantUsecase struct {
	emails    EmailSource
	retriever Retriever
	responder Responder
	log       zerolog.Logger
}

// NewAssistantUsecase wires the assistant. retriever may be nil, in which
// case only the top of the feed is used as context.
func NewAssistantUsecase(emails EmailSource, retriever Retriever, responder Responder, log zerolog.Logger) AssistantUsecase {
	return &assistantUsecase{emails: emails, retriever: retriever, responder: responder, log: log}
}

func (u *assistantUsecase) Chat(ctx context.Context, userID, message string) (*domain.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if u.responder == nil {
		return nil, domain.ErrUnavailable
	}
	if r := []rune(message); len(r) > maxMessageChars {
		message = string(r[:maxMessageChars])
	}

	emails, err := u.gatherContext(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	answer, err := u.responder.Chat(ctx, systemPrompt, buildPrompt(emails, message))
	if err != nil {
		return nil, fmt.Errorf("assistant chat failed: %w", err)
	}

	ids := make([]string, 0, len(emails))
	for _, e := range emails {
		ids = append(ids, e.MessageID)
	}
	return &domain.Reply{Answer: strings.TrimSpace(answer), EmailIDs: ids}, nil
}

// gatherContext returns retrieved emails first, then the heaviest displayed
// ones, without duplicates.
func (u *assistantUsecase) gatherContext(ctx context.Context, userID, message string) ([]*inboxdomain.ScoredEmail, error) {
	seen := make(map[string]bool)
	var out []*inboxdomain.ScoredEmail

	if u.retriever != nil {
		matches, err := u.retriever.Search(ctx, userID, message, retrievedContext)
		if err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("context retrieval failed")
		}
		for _, m := range matches {
			if seen[m.MessageID] {
				continue
			}
			email, err := u.emails.GetEmail(ctx, userID, m.MessageID)
			if err != nil {
				// index can run ahead of or behind the score store
				continue
			}
			seen[m.MessageID] = true
			out = append(out, email)
		}
	}

	feed, err := u.emails.GetFeed(ctx, userID, feedContext, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range feed {
		if seen[e.MessageID] {
			continue
		}
		seen[e.MessageID] = true
		out = append(out, e)
	}
	return out, nil
}

func buildPrompt(emails []*inboxdomain.ScoredEmail, message string) string {
	var b strings.Builder
	if len(emails) == 0 {
		b.WriteString("Context: the inbox has no emails that need attention.\n")
	} else {
		b.WriteString("Context emails:\n")
		for i, e := range emails {
			fmt.Fprintf(&b, "%d. [%s, %s priority, mental load %d] %s\n   From: %s\n   Received: %s\n   %s\n",
				i+1, e.Category, e.Priority, e.MentalLoadScore, e.Subject,
				e.Sender, e.ReceivedAt.Format("Mon Jan 2 2006"), e.Snippet)
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(message)
	return b.String()
}
