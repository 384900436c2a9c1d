package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aiyo-oss/aiyo/internal/app"
	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/event"
	"github.com/aiyo-oss/aiyo/internal/memory"
)

var adminYes bool

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Inspect and manage saved facts",
	Long: `Commands for inspecting and managing the fact store directly.

Examples:
  aiyo admin list            # List every saved fact
  aiyo admin delete <id>     # Delete one fact
  aiyo admin wipe            # Delete everything (asks for confirmation)`,
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved facts, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(st *app.Stack) error {
			return listFacts(cmd.Context(), st.Store, os.Stdout, time.Now())
		})
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a fact by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(st *app.Stack) error {
			return deleteFact(cmd.Context(), st.Store, st.Bus, os.Stdout, args[0])
		})
	},
}

var adminWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every saved fact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(st *app.Stack) error {
			return wipeFacts(cmd.Context(), st.Store, st.Bus, os.Stdin, os.Stdout, adminYes)
		})
	},
}

func init() {
	adminWipeCmd.Flags().BoolVarP(&adminYes, "yes", "y", false, "skip the confirmation prompt")

	adminCmd.AddCommand(adminListCmd)
	adminCmd.AddCommand(adminDeleteCmd)
	adminCmd.AddCommand(adminWipeCmd)
}

func withStack(fn func(st *app.Stack) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func listFacts(ctx context.Context, store *memory.Store, out io.Writer, now time.Time) error {
	facts, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(facts) == 0 {
		fmt.Fprintln(out, "No facts saved.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-6s  %-16s  %s\n", "ID", "SOURCE", "SAVED", "TEXT")
	fmt.Fprintf(out, "%-36s  %-6s  %-16s  %s\n", "--", "------", "-----", "----")
	for _, f := range facts {
		fmt.Fprintf(out, "%-36s  %-6s  %-16s  %s\n", f.ID, f.Source, humanize.RelTime(f.CreatedAt, now, "ago", "from now"), f.Text)
	}
	fmt.Fprintf(out, "\n%s facts\n", humanize.Comma(int64(len(facts))))
	return nil
}

func deleteFact(ctx context.Context, store *memory.Store, bus *event.Bus, out io.Writer, id string) error {
	if !store.Delete(ctx, id) {
		return aiyoErrors.New(aiyoErrors.CodeFactNotFound, "no fact with id "+id).
			WithSuggestion("Run 'aiyo admin list' to see saved ids")
	}
	_ = bus.Emit(event.NewEvent(event.FactForgotten, map[string]interface{}{"id": id, "manual": true}))
	fmt.Fprintf(out, "Memory %s destroyed.\n", id)
	return nil
}

func wipeFacts(ctx context.Context, store *memory.Store, bus *event.Bus, in io.Reader, out io.Writer, yes bool) error {
	count := store.Count(ctx)
	if count == 0 {
		fmt.Fprintln(out, "Nothing to wipe.")
		return nil
	}

	if !yes {
		fmt.Fprintf(out, "This permanently deletes %s facts. Type 'yes' to continue: ", humanize.Comma(int64(count)))
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	n, err := store.Wipe(ctx)
	if err != nil {
		return err
	}
	_ = bus.Emit(event.NewEvent(event.MemoryWiped, map[string]interface{}{"count": n}))
	fmt.Fprintf(out, "Wiped %s facts.\n", humanize.Comma(int64(n)))
	return nil
}
