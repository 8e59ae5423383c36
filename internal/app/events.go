package app

import (
	"github.com/mark3labs/msgkit/internal/controller"
	"github.com/mark3labs/msgkit/internal/message"
)

// SubmissionSettledEvent is sent when a submitted flow's request has
// finished, successfully or not. The TUI hands the Settlement back to the
// controller that produced the submission.
type SubmissionSettledEvent struct {
	// Settlement is the result of Submission.Run.
	Settlement controller.Settlement
}

// ListLoadedEvent is sent when the message list has been (re)loaded from the
// source. The store already holds Messages when the event arrives.
type ListLoadedEvent struct {
	Messages []message.Message
}

// ListErrorEvent is sent when reloading the message list fails. The previous
// list is kept.
type ListErrorEvent struct {
	Err error
}
