package app

import (
	tea "charm.land/bubbletea/v2"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/message"
	"github.com/mark3labs/msgkit/internal/request"
)

// Options configures an App instance.
type Options struct {
	// Doer performs the API calls issued by message controllers. Required.
	// *transport.Client satisfies this interface; tests may supply stubs.
	Doer request.Doer

	// Source supplies the message list. When nil, Reload reports an error
	// and the list only changes through local deletes.
	Source message.Source

	// Viewer is the identity every controller is created for.
	Viewer auth.Viewer

	// OnEvent receives events when no tea.Program is registered. Tests use
	// it to observe settlements without running a program.
	OnEvent func(tea.Msg)
}
