package socket

import "fmt"

// Handler implements the individual commands
type Handler interface {
	HandleStatusCommand(cmd Command) Response
	HandleHistoryCommand(cmd Command) Response
}

// CommandHandler processes any decoded command
type CommandHandler interface {
	HandleCommand(cmd Command) Response
}

// DefaultCommandHandler routes commands to Handler methods
type DefaultCommandHandler struct {
	handler Handler
}

// NewDefaultCommandHandler creates a new default command handler
func NewDefaultCommandHandler(handler Handler) *DefaultCommandHandler {
	return &DefaultCommandHandler{handler: handler}
}

// HandleCommand processes a socket command
func (h *DefaultCommandHandler) HandleCommand(cmd Command) Response {
	switch cmd.Action {
	case ActionStatus:
		return h.handler.HandleStatusCommand(cmd)
	case ActionHistory:
		return h.handler.HandleHistoryCommand(cmd)
	default:
		return Fail(fmt.Sprintf("Unknown command: %s", cmd.Action))
	}
}
