package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aiyo-oss/aiyo/internal/config"
)

// Set at build time via -ldflags "-X github.com/aiyo-oss/aiyo/internal/cli.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		def := config.Default()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "aiyo %s (%s, built %s)\n", Version, GitCommit, BuildTime)
		fmt.Fprintf(out, "  Go:             %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  Default model:  %s via %s\n", def.Provider.Model, def.Provider.Name)
		fmt.Fprintf(out, "  Default memory: %s (%s, embed model %s)\n", def.Memory.Backend, def.Memory.Path, def.Memory.EmbedModel)
	},
}
