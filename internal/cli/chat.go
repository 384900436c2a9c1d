package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiyo-oss/aiyo/internal/agent"
	"github.com/aiyo-oss/aiyo/internal/app"
	"github.com/aiyo-oss/aiyo/internal/config"
	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/protocol"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. This is the default command.

Commands inside the session:
  exit, quit         end the session
  /new, /reset, .    clear the conversation (saved facts are kept)
  /del <id>          delete a saved fact by id`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

// chatRuntime is the part of agent.Runtime the REPL drives.
type chatRuntime interface {
	Turn(ctx context.Context, input string) (*agent.TurnResult, error)
	Forget(ctx context.Context, id string) bool
	Reset()
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	u := newUI(os.Stdout, noColor, 0)
	u.printf(colorYellow, "Linking memory store...")
	st, err := app.Open(cfg)
	if err != nil {
		u.println(colorRed, " [FAIL]")
		return err
	}
	defer st.Close()
	u.println(colorGreen, " [LINKED]")

	p, err := app.BuildProvider(cfg)
	if err != nil {
		return err
	}

	rt := st.Runtime(p)

	typingDelay, _ := config.ParseDuration(cfg.Chat.TypingDelay)
	turnTimeout, _ := config.ParseDuration(cfg.Chat.TurnTimeout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &repl{
		runtime:     rt,
		in:          os.Stdin,
		ui:          newUI(os.Stdout, noColor, typingDelay),
		turnTimeout: turnTimeout,
		showRecall:  showRecall || verbose,
	}
	r.ui.println(colorCyan, fmt.Sprintf("%s ready (%s via %s, %d facts in memory).",
		cfg.Name, cfg.Provider.Model, cfg.Provider.Name, st.Store.Count(ctx)))
	r.ui.println("", strings.Repeat("-", 50))

	err = r.Run(ctx)
	st.Logger.Debug("Session summary", "metrics", st.Metrics.GetSummary())
	return err
}

// repl reads user lines and renders turn results.
type repl struct {
	runtime     chatRuntime
	in          io.Reader
	ui          *ui
	turnTimeout time.Duration
	showRecall  bool
}

// Run loops until exit, EOF or ctx is cancelled.
func (r *repl) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		r.ui.printf(colorGreen, "\nYou: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			r.ui.println("", "\nInterrupted.")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(r.ui.out)
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
			default:
			}
			return nil
		}

		if r.handle(ctx, line) {
			return nil
		}
	}
}

// handle processes one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	switch {
	case input == "":
		return false
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return true
	case input == "/new", input == "/reset", input == ".":
		r.runtime.Reset()
		r.ui.println(colorYellow, "Conversation context cleared.")
		return false
	case input == "/del" || strings.HasPrefix(input, "/del "):
		r.deleteFact(ctx, input)
		return false
	}

	r.turn(ctx, input)
	return false
}

func (r *repl) deleteFact(ctx context.Context, input string) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		r.ui.println("", "Usage: /del <id>")
		return
	}
	id := fields[1]
	if r.runtime.Forget(ctx, id) {
		r.ui.println(colorRed, fmt.Sprintf("Memory %s destroyed.", id))
	} else {
		r.ui.println(colorGrey, "ID not found.")
	}
}

func (r *repl) turn(ctx context.Context, input string) {
	if r.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.turnTimeout)
		defer cancel()
	}

	res, err := r.runtime.Turn(ctx, input)
	if err != nil {
		r.ui.println(colorRed, fmt.Sprintf("Error: %v", err))
		if s := aiyoErrors.Suggestion(err); s != "" {
			r.ui.println(colorGrey, "  -> "+s)
		}
		return
	}

	if len(res.Recalled) > 0 {
		r.ui.println(colorYellow, fmt.Sprintf("Recall: found %d memories.", len(res.Recalled)))
		if r.showRecall {
			if res.Continued {
				r.ui.println(colorGrey, fmt.Sprintf("   [DEBUG] Query: %q", res.Query))
			}
			for _, e := range res.Recalled {
				dist := fmt.Sprintf("%.4f", e.Distance)
				if e.LastSaved {
					dist = "last saved"
				}
				r.ui.println(colorYellow, fmt.Sprintf("   [DEBUG] Dist: %s | ID: %s | Found: '%s'", dist, e.Fact.ID, e.Fact.Text))
			}
		}
	}

	r.ui.printf(colorBlue, "Aiyo: ")
	r.ui.typeOut(ctx, res.Display)
	for _, entry := range res.Activity {
		r.ui.println(activityColor(entry.Kind), activityLine(entry))
	}
	r.ui.println(colorHeader, fmt.Sprintf("   (%.2fs)", res.Elapsed.Seconds()))
}

func activityLine(e protocol.Entry) string {
	switch e.Kind {
	case protocol.Pruned:
		return "[Auto-Prune]: memory " + e.Target + " removed."
	case protocol.NotFound:
		return "[Auto-Prune]: ID " + e.Target + " not found."
	case protocol.Saved:
		return "[Auto-Save]: '" + e.Target + "'"
	case protocol.Duplicate:
		return "[Memory]: I already knew that."
	case protocol.Blocked:
		return "[Safety]: Blocked a save while you were asking a question."
	case protocol.Skipped:
		return "[Memory]: Skipped extra save '" + e.Target + "'."
	default:
		return "[Memory]: " + e.String()
	}
}

func activityColor(k protocol.EntryKind) string {
	switch k {
	case protocol.Pruned, protocol.SaveFailed:
		return colorRed
	default:
		return colorGrey
	}
}
