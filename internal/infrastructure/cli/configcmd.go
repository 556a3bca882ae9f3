package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/config"
)

var (
	configForce  bool
	configGemini bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		profile := config.NewDefaultConfig()
		if configGemini {
			profile = config.NewGeminiConfig()
		}
		if err := config.Save(path, profile); err != nil {
			return err
		}
		cmd.Printf("%s %s\n", okColor("wrote"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		shown.Embedding.APIKey = redact(shown.Embedding.APIKey)
		shown.LLM.APIKey = redact(shown.LLM.APIKey)
		shown.Index.Qdrant.APIKey = redact(shown.Index.Qdrant.APIKey)

		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configGemini, "gemini", false, "write a Gemini embedding and generation profile")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
