package queue

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appconfig "github.com/reifying/untethered/internal/config"
	"github.com/reifying/untethered/internal/logging"
	"github.com/reifying/untethered/internal/queue"
	"github.com/reifying/untethered/internal/store"
)

var addPriority string

func init() {
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "priority bucket: high, medium, or low")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued sessions in queue order",
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add <session-id>",
	Short: "Add a session to the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <session-id>",
	Short: "Remove a session from the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var moveCmd = &cobra.Command{
	Use:   "move <session-id> <index>",
	Short: "Move a session to a position within its priority bucket",
	Long: `Move a session to the given position within its priority bucket,
where 0 is the head. Only the moved session's order key is rewritten;
the rest of the queue is untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var priorityCmd = &cobra.Command{
	Use:   "priority <session-id> <high|medium|low>",
	Short: "Move a session to the tail of another priority bucket",
	Args:  cobra.ExactArgs(2),
	RunE:  runPriority,
}

// openManager loads the persisted queue from the configured state
// directory. The returned cleanup flushes the log file.
func openManager() (*queue.Manager, func(), error) {
	cfg := appconfig.Get()
	stateDir := cfg.Paths.ResolveStateDir()

	logger := logging.NopLogger()
	cleanup := func() {}
	if cfg.Logging.Enabled {
		l, err := logging.NewLogger(stateDir, cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err == nil {
			logger = l
			cleanup = func() { _ = l.Close() }
		}
	}

	st, err := store.NewFileStore(stateDir, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	m, err := queue.NewManager(st, nil, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}

func runList(cmd *cobra.Command, args []string) error {
	m, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	entries := m.Entries()
	if len(entries) == 0 {
		fmt.Println("queue is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tPRIORITY\tORDER KEY\tSESSION")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%g\t%s\n", i, e.Priority, e.OrderKey, e.SessionID)
	}
	return w.Flush()
}

func runAdd(cmd *cobra.Command, args []string) error {
	m, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	priority := queue.PriorityMedium
	if addPriority != "" {
		priority, err = queue.ParsePriority(addPriority)
		if err != nil {
			return err
		}
	} else if name := appconfig.Get().Queue.DefaultPriority; name != "" {
		priority, err = queue.ParsePriority(name)
		if err != nil {
			return err
		}
	}

	if err := m.Add(args[0], priority); err != nil {
		return err
	}
	fmt.Printf("queued %s (%s)\n", args[0], priority)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	m, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := m.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	m, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("index must be a number: %w", err)
	}
	if err := m.Reorder(args[0], index); err != nil {
		return err
	}
	fmt.Printf("moved %s to position %d\n", args[0], index)
	return nil
}

func runPriority(cmd *cobra.Command, args []string) error {
	m, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()
	priority, err := queue.ParsePriority(args[1])
	if err != nil {
		return err
	}
	if err := m.SetPriority(args[0], priority); err != nil {
		return err
	}
	fmt.Printf("set %s to %s\n", args[0], priority)
	return nil
}
