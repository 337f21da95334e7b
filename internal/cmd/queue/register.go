// Package queue provides CLI commands for inspecting and editing the
// persisted session queue. Commands operate directly on the state
// file, so they are safe to run while the client is up: writes go
// through the same file lock, and the client's watcher picks up the
// change.
package queue

import "github.com/spf13/cobra"

// Register adds the queue command tree to the given parent command.
func Register(parent *cobra.Command) {
	queueCmd.AddCommand(listCmd)
	queueCmd.AddCommand(addCmd)
	queueCmd.AddCommand(removeCmd)
	queueCmd.AddCommand(moveCmd)
	queueCmd.AddCommand(priorityCmd)
	parent.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or edit the session priority queue",
}
