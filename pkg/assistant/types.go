package assistant

import (
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

// ChatRequest is one message sent to a tutoring agent, with the course
// position it was asked from.
type ChatRequest struct {
	UserID  string       `json:"user_id"`
	PlanID  string       `json:"plan_id"`
	Agent   plan.Feature `json:"agent"`
	Message string       `json:"message"`

	// Optional course context for the agent.
	CourseID  string  `json:"course_id,omitempty"`
	VideoID   string  `json:"video_id,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"` // seconds into the video
}

// ChatResponse is the canonical reply shape both response paths produce.
type ChatResponse struct {
	ID    string       `json:"id"`
	Agent plan.Feature `json:"agent"`
	Reply string       `json:"reply"`

	// Quota snapshot from the admission that paid for this reply.
	// -1 means unlimited.
	RemainingToday int64 `json:"remaining_today"`
	RemainingMonth int64 `json:"remaining_this_period"`
}
