// Package agent implements the dispatcher that routes an utterance,
// classified by a collaborators.IntentClassifier, to the search, inquiry,
// or casual collaborator flow.
package agent

import (
	"context"
	"time"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/collaborators"
)

const (
	clarificationThreshold = 0.4
	classifyDeadline       = 3 * time.Second
)

// Result is what /agent/conversation returns.
type Result struct {
	Intent        string
	Confidence    float64
	Reply         string
	SearchResults []collaborators.SearchResult
	NeedsClarify  bool
}

type Dispatcher struct {
	Classifier collaborators.IntentClassifier
	Search     collaborators.SemanticSearch
	Profiles   collaborators.ProfileStore
	Answerer   collaborators.Answerer
	Viewed     ViewedLookup
}

// ViewedLookup supplies the caller's already-viewed exclusion set, routed
// into the search collaborator so results never repeat profiles already seen.
type ViewedLookup interface {
	Viewed(ctx context.Context, user int64) (map[int64]bool, error)
}

func NewDispatcher(classifier collaborators.IntentClassifier, search collaborators.SemanticSearch, profiles collaborators.ProfileStore, answerer collaborators.Answerer, viewed ViewedLookup) *Dispatcher {
	return &Dispatcher{Classifier: classifier, Search: search, Profiles: profiles, Answerer: answerer, Viewed: viewed}
}

// Dispatch classifies utterance and routes it to the matching collaborator
// flow. On classifier timeout or error the intent defaults to casual; confidence
// below the clarification threshold forces a clarification reply
// regardless of the label the classifier returned.
func (d *Dispatcher) Dispatch(ctx context.Context, caller int64, utterance string, referencedUserIDs []int64) (Result, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, classifyDeadline)
	defer cancel()

	classification, err := d.classify(classifyCtx, utterance, referencedUserIDs)
	if err != nil {
		classification = collaborators.Classification{Intent: "casual", Confidence: 1, Reasoning: "classifier unavailable"}
	}

	if classification.Confidence < clarificationThreshold {
		return Result{
			Intent:       classification.Intent,
			Confidence:   classification.Confidence,
			Reply:        "Could you say a bit more about what you're looking for?",
			NeedsClarify: true,
		}, nil
	}

	switch classification.Intent {
	case "search":
		return d.dispatchSearch(ctx, caller, utterance, classification)
	case "inquiry":
		return d.dispatchInquiry(ctx, utterance, referencedUserIDs, classification)
	default:
		return d.dispatchCasual(classification), nil
	}
}

func (d *Dispatcher) classify(ctx context.Context, utterance string, referencedUserIDs []int64) (collaborators.Classification, error) {
	type result struct {
		c   collaborators.Classification
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := d.Classifier.Classify(ctx, utterance, referencedUserIDs)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		return r.c, r.err
	case <-ctx.Done():
		return collaborators.Classification{}, ctx.Err()
	}
}

func (d *Dispatcher) dispatchSearch(ctx context.Context, caller int64, utterance string, c collaborators.Classification) (Result, error) {
	var exclude []int64
	if d.Viewed != nil {
		viewed, err := d.Viewed.Viewed(ctx, caller)
		if err != nil {
			return Result{}, apperr.New(apperr.UpstreamTimeout, "failed to load viewed exclusion set")
		}
		for id := range viewed {
			exclude = append(exclude, id)
		}
	}

	results, err := d.Search.Search(ctx, utterance, exclude, 20)
	if err != nil {
		return Result{}, apperr.New(apperr.UpstreamTimeout, "search collaborator failed")
	}

	return Result{
		Intent:        c.Intent,
		Confidence:    c.Confidence,
		Reply:         "Here's what I found that matches what you're looking for.",
		SearchResults: results,
	}, nil
}

func (d *Dispatcher) dispatchInquiry(ctx context.Context, question string, referencedUserIDs []int64, c collaborators.Classification) (Result, error) {
	if len(referencedUserIDs) == 0 {
		return Result{
			Intent:       c.Intent,
			Confidence:   c.Confidence,
			Reply:        "Who are you asking about? Mention the profile you mean and I'll look it up.",
			NeedsClarify: true,
		}, nil
	}

	profile, err := d.Profiles.GetProfile(ctx, referencedUserIDs[0])
	if err != nil {
		return Result{}, apperr.New(apperr.UpstreamTimeout, "profile collaborator failed")
	}

	docs := make([]string, 0, len(profile.Fields))
	for _, v := range profile.Fields {
		docs = append(docs, v)
	}

	answer, err := d.Answerer.Answer(ctx, question, docs)
	if err != nil {
		return Result{}, apperr.New(apperr.UpstreamTimeout, "answerer collaborator failed")
	}

	return Result{Intent: c.Intent, Confidence: c.Confidence, Reply: answer}, nil
}

func (d *Dispatcher) dispatchCasual(c collaborators.Classification) Result {
	return Result{
		Intent:     c.Intent,
		Confidence: c.Confidence,
		Reply:      "Not sure exactly what you mean — try asking me to find someone, or ask about a profile you've seen.",
	}
}
