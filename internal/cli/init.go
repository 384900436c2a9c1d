package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aiyo-oss/aiyo/internal/config"
)

var (
	initBackend string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter aiyo.yaml",
	Long: `Write a starter aiyo.yaml with every default spelled out, and create the
storage directory for the fact store.

Backends:
  chromem - embedded vector database persisted as files (default)
  sqlite  - single SQLite file with brute-force cosine search`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initBackend, "backend", "b", "chromem", "memory backend (chromem, sqlite)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing aiyo.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	path, err := writeStarterConfig(dir, initBackend, initForce)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Next: run 'aiyo doctor' to check the model server, then 'aiyo' to chat.")
	return nil
}

func writeStarterConfig(dir, backend string, force bool) (string, error) {
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := &config.Config{Judge: config.JudgeConfig{Enabled: true}}
	cfg.Memory.Backend = backend
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return "", err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	storeDir := filepath.Join(dir, cfg.Memory.Path)
	if backend == "sqlite" {
		storeDir = filepath.Dir(storeDir)
	}
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	return path, nil
}
