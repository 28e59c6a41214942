package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"lsx86/internal/analysis"
	"lsx86/internal/hostcpu"
)

// schemaTargets are the documents the schema command can describe.
var schemaTargets = map[string]func() any{
	"config":     func() any { return &Config{} },
	"total":      func() any { return &analysis.Total{} },
	"by-symbol":  func() any { return &analysis.BySymbol{} },
	"by-feature": func() any { return &analysis.FeatureIndex{} },
	"check":      func() any { return &hostcpu.Result{} },
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [config|total|by-symbol|by-feature|check]",
		Short:     "Generate JSON schema for configuration and reports",
		Long:      "Generate JSON schema for the lsx86 configuration or one of its JSON documents",
		Hidden:    true,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "total", "by-symbol", "by-feature", "check"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "config"
			if len(args) > 0 {
				target = args[0]
			}
			reflector := new(jsonschema.Reflector)
			bts, err := json.MarshalIndent(reflector.Reflect(schemaTargets[target]()), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
