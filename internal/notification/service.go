// Package notification turns Gmail push notifications into inbox sync jobs.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	accountdomain "homeops-backend/internal/account/domain"
	inboxdomain "homeops-backend/internal/inbox/domain"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on every mailbox change.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

type AccountFinder interface {
	FindByEmail(email string) (*accountdomain.Account, error)
}

type Enqueuer interface {
	Enqueue(userID string) error
}

type Service struct {
	pubsubClient *pubsub.Client
	accounts     AccountFinder
	queue        Enqueuer
	log          zerolog.Logger
	topicName    string
	subName      string

	mu sync.Mutex
	// last handled historyId per account
	lastHistoryID map[string]uint64
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, accounts AccountFinder, queue Enqueuer, log zerolog.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	s := newService(accounts, queue, log)
	s.pubsubClient = client
	s.topicName = topicName
	s.subName = topicName + "-sub"
	return s, nil
}

func newService(accounts AccountFinder, queue Enqueuer, log zerolog.Logger) *Service {
	return &Service{
		accounts:      accounts,
		queue:         queue,
		log:           log,
		lastHistoryID: make(map[string]uint64),
	}
}

// Start receives notifications until ctx is cancelled. The subscription is
// created when missing; the topic must already exist.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.subscription(ctx)
	if err != nil {
		return err
	}

	s.log.Info().Str("subscription", s.subName).Msg("listening for gmail notifications")
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.handle(msg.Data); err != nil {
			s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("notification not handled, will be redelivered")
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

func (s *Service) subscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription %s: %w", s.subName, err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", s.topicName, err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription %s: %w", s.subName, err)
	}
	s.log.Info().Str("subscription", s.subName).Msg("created subscription")
	return sub, nil
}

// handle returns an error only when the message should be redelivered.
func (s *Service) handle(data []byte) error {
	var n GmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed notification")
		return nil
	}
	log := s.log.With().Str("email", n.EmailAddress).Uint64("history_id", n.HistoryID).Logger()

	account, err := s.accounts.FindByEmail(n.EmailAddress)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		log.Debug().Msg("no account for notification")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastHistoryID[account.ID]; ok && n.HistoryID <= last {
		log.Debug().Uint64("last_history_id", last).Msg("skipping duplicate notification")
		return nil
	}

	err = s.queue.Enqueue(account.ID)
	switch {
	// ErrSyncInProgress: a queued job that has not started will see this history id
	case err == nil, errors.Is(err, inboxdomain.ErrSyncInProgress):
	case errors.Is(err, inboxdomain.ErrQueueFull):
		return err
	default:
		return fmt.Errorf("enqueue sync: %w", err)
	}

	s.lastHistoryID[account.ID] = n.HistoryID
	log.Debug().Str("user_id", account.ID).Msg("sync queued from notification")
	return nil
}
