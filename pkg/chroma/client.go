package chroma

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"homeops-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "homeops_email"

// maxDocumentChars keeps documents under the embedding model's token limit.
const maxDocumentChars = 8000

// Document is one scored email indexed for retrieval.
type Document struct {
	UserID     string
	MessageID  string
	Subject    string
	Snippet    string
	Sender     string
	Category   string
	MentalLoad int
}

// Match is a search hit. Lower distance means closer.
type Match struct {
	MessageID string
	Distance  float64
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for embeddings")
	}

	// The embedding function only reads its key from the environment
	os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection %s", collectionName)
	return &ChromaClient{client: client, collection: collection}, nil
}

// documentID scopes message ids per user; two accounts can share a message id.
func documentID(userID, messageID string) chroma.DocumentID {
	return chroma.DocumentID(userID + ":" + messageID)
}

func documentText(d Document) string {
	text := fmt.Sprintf("Subject: %s\nFrom: %s\nCategory: %s\n\n%s", d.Subject, d.Sender, d.Category, d.Snippet)
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}
	return text
}

// Upsert indexes the document, replacing any previous version.
func (c *ChromaClient) Upsert(ctx context.Context, d Document) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":     d.UserID,
		"message_id":  d.MessageID,
		"subject":     d.Subject,
		"category":    d.Category,
		"mental_load": d.MentalLoad,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(documentID(d.UserID, d.MessageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(documentText(d)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email embedding: %w", err)
	}
	return nil
}

// Search returns the user's documents closest to query.
func (c *ChromaClient) Search(ctx context.Context, userID, query string, limit int) ([]Match, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return nil, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}

	prefix := userID + ":"
	matches := make([]Match, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		m := Match{MessageID: strings.TrimPrefix(string(id), prefix)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			m.Distance = float64(distanceGroups[0][i])
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c *ChromaClient) Delete(ctx context.Context, userID, messageID string) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(documentID(userID, messageID))); err != nil {
		return fmt.Errorf("failed to delete email embedding: %w", err)
	}
	return nil
}
