package assistant

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

// FixtureResponder produces deterministic canned replies without any
// network I/O. The same request always yields the same response, which
// keeps development and test runs reproducible.
type FixtureResponder struct{}

// NewFixtureResponder creates the fixture-mode responder.
func NewFixtureResponder() *FixtureResponder {
	return &FixtureResponder{}
}

var fixtureReplies = map[plan.Feature][]string{
	plan.FeatureChat: {
		"That's a great question. The key idea in this section is worth rewatching from the start of the segment.",
		"Let's break that down step by step. Start with the definition the instructor gave, then apply it to the example.",
		"Think about how this concept connects to what you learned in the previous lesson.",
	},
	plan.FeatureHints: {
		"Hint: the answer follows directly from the formula shown on screen.",
		"Hint: compare the two cases the instructor contrasted a moment ago.",
	},
	plan.FeatureQuiz: {
		"Quick check: in your own words, what problem does this technique solve?",
		"Quick check: which of the steps shown could be skipped, and why not?",
	},
	plan.FeatureReflections: {
		"Reflection prompt: summarize the last segment in two sentences.",
		"Reflection prompt: where could you apply this in a project of your own?",
	},
	plan.FeatureLearningPath: {
		"Suggested next step: revisit the fundamentals module before continuing.",
	},
}

// Respond returns a canned reply selected by a stable hash of the request,
// so identical inputs produce identical outputs.
func (f *FixtureResponder) Respond(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	replies, ok := fixtureReplies[req.Agent]
	if !ok || len(replies) == 0 {
		replies = fixtureReplies[plan.FeatureChat]
	}

	h := fnv.New32a()
	h.Write([]byte(req.Message))
	h.Write([]byte(req.Agent))
	h.Write([]byte(req.VideoID))
	sum := h.Sum32()

	return ChatResponse{
		ID:    fmt.Sprintf("fixture-%08x", sum),
		Agent: req.Agent,
		Reply: replies[int(sum)%len(replies)],
	}, nil
}
