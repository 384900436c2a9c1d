package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiyo-oss/aiyo/internal/app"
	"github.com/aiyo-oss/aiyo/internal/config"
	"github.com/aiyo-oss/aiyo/internal/provider/ollama"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and dependencies",
	Long:  "Validate the configuration, the fact store and the model server.",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("aiyo doctor: checking your environment")
	fmt.Println()
	allOK := true

	fmt.Printf("  Go version: %s ✓\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s ✓\n", runtime.GOOS, runtime.GOARCH)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  Config:     INVALID ✗\n    → %v\n", err)
		fmt.Println()
		fmt.Println("Some checks failed. See above for details.")
		return nil
	}
	fmt.Printf("  Config:     %s (%s/%s) ✓\n", cfg.Name, cfg.Provider.Name, cfg.Provider.Model)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if !checkProvider(ctx, cfg) {
		allOK = false
	}

	st, err := app.Open(cfg)
	if err != nil {
		fmt.Printf("  Store:      FAILED (%v) ✗\n", err)
		allOK = false
	} else {
		fmt.Printf("  Store:      %s at %s, %d facts ✓\n", cfg.Memory.Backend, cfg.Memory.Path, st.Store.Count(ctx))
		st.Close()
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See above for details.")
	}
	return nil
}

func checkProvider(ctx context.Context, cfg *config.Config) bool {
	switch cfg.Provider.Name {
	case "anthropic":
		if cfg.Provider.APIKey == "" {
			fmt.Println("  API key:    NOT SET ✗")
			fmt.Println("    → Set ANTHROPIC_API_KEY or provider.api_key")
			return false
		}
		fmt.Printf("  API key:    set (%s) ✓\n", maskKey(cfg.Provider.APIKey))
		return true
	default:
		client, err := ollama.NewClient(cfg.Provider.Model, cfg.Provider.BaseURL, cfg.Provider.NumCtx, 5*time.Second)
		if err != nil {
			fmt.Printf("  Ollama:     %v ✗\n", err)
			return false
		}
		if err := client.Ping(ctx); err != nil {
			fmt.Printf("  Ollama:     unreachable at %s ✗\n    → Start it with 'ollama serve'\n", cfg.Provider.BaseURL)
			return false
		}
		fmt.Printf("  Ollama:     %s ✓\n", cfg.Provider.BaseURL)

		ok, err := client.HasModel(ctx)
		switch {
		case err != nil:
			fmt.Printf("  Model:      %v ✗\n", err)
			return false
		case !ok:
			fmt.Printf("  Model:      %s not pulled ✗\n    → Run 'ollama pull %s'\n", cfg.Provider.Model, cfg.Provider.Model)
			return false
		}
		fmt.Printf("  Model:      %s ✓\n", cfg.Provider.Model)
		return true
	}
}
