package sync

import "github.com/ferryhq/ferrytask/internal/model"

// Winner names which side a conflict resolution picked
type Winner int

const (
	LocalWins Winner = iota
	ServerWins
)

func (w Winner) String() string {
	if w == LocalWins {
		return "local"
	}
	return "server"
}

// ResolveConflict applies last-writer-wins at whole-entity granularity.
// Pure function of the two updated_at values: the local snapshot wins
// only when strictly newer; equal timestamps go to the server.
func ResolveConflict(local, server model.Task) (model.Task, Winner) {
	if local.UpdatedAt.After(server.UpdatedAt) {
		return local, LocalWins
	}
	return server, ServerWins
}
