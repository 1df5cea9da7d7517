package cmd

import (
	"fmt"
	"strings"

	"github.com/nikogura/resume-optimizer/pkg/config"
	"github.com/nikogura/resume-optimizer/pkg/prompts"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file to the --config path, or to
$HOME/.resume-optimizer/config.json when none is given.

A path ending in .yaml or .yml is written as YAML. An existing file is never overwritten.
The bundled prompt template names are listed so they can be overridden in prompts_dir.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	var path string
	path, err = config.InitConfig(getConfigFile())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Configuration written to %s\n", path)
	fmt.Println("Edit llm.endpoint, or set LLM_ENDPOINT, before generating.")
	fmt.Println(templateHint(prompts.NewStore("", nil)))
	return err
}

// templateHint names the bundled templates a prompts_dir file may replace.
func templateHint(store *prompts.Store) (hint string) {
	hint = "Prompt templates (override with <name>.md in prompts_dir): " + strings.Join(store.Names(), ", ")
	return hint
}
