// Package collaborators declares the external-system contracts this
// codebase consumes without implementing beyond their interface: the
// core only consumes a ranked ID list from search, never implements
// ranking itself, and never implements payment provider signing beyond
// the settlement contract. Each is an explicit dependency on a context
// object so tests substitute fakes for the notifier, LLM, and vector
// store. Concrete production implementations (WeChat/Alipay HTTP
// clients, Stripe) live in internal/payments; SMS/push, semantic
// search, profile, and LLM collaborators have no grounded vendor SDK
// to wire and so are interfaces plus in-memory fakes only.
package collaborators

import "context"

// Notifier delivers a one-time code or notification out of band
// (SMS/email/push). Idempotency is the notifier's responsibility when the
// caller passes a stable request id.
type Notifier interface {
	Send(ctx context.Context, destination, templateID string, variables map[string]string) (accepted bool, err error)
}

// SearchResult is one ranked hit from the semantic-search collaborator.
type SearchResult struct {
	UserID int64
	Score  float64
}

// SemanticSearch is the vector-DB-backed recommendation collaborator.
// The core never implements ranking itself.
type SemanticSearch interface {
	Search(ctx context.Context, queryText string, excludeIDs []int64, limit int) ([]SearchResult, error)
}

// Profile is an opaque profile document; the core stores and forwards
// it without interpreting its fields.
type Profile struct {
	UserID int64
	Fields map[string]string
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
}

// Classification is the output of the pluggable intent classifier.
type Classification struct {
	Intent     string // "search" | "inquiry" | "casual"
	Confidence float64
	Reasoning  string
}

// IntentClassifier must be deterministic given the same input under a
// fixed model version, and complete within the dispatcher's deadline.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string, referencedUserIDs []int64) (Classification, error)
}

// Answerer grounds an answer about a referenced user in retrieved
// documents, for the "inquiry" dispatch path.
type Answerer interface {
	Answer(ctx context.Context, question string, groundingDocs []string) (string, error)
}
