package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/pipeline"
)

var (
	runDomain     string
	runConfigPath string
	runRecordID   string
	runForce      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Research a single domain and print its dossier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rc, err := loadResearchConfig(runConfigPath)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		state, err := env.Pipeline.Research(ctx, pipeline.Request{
			Domain:       runDomain,
			RecordID:     runRecordID,
			ForceRefresh: runForce,
			Config:       rc,
		})
		if err != nil {
			return eris.Wrapf(err, "research %s", runDomain)
		}

		zap.L().Info("research complete",
			zap.String("domain", state.Domain),
			zap.String("status", string(state.Status)),
			zap.String("fit_tier", string(state.Dossier.Diagnosis.FitTier)),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state.Dossier)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "", "company domain to research (required)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "research config YAML file (required)")
	runCmd.Flags().StringVar(&runRecordID, "record-id", "", "CRM record id (default: looked up by domain)")
	runCmd.Flags().BoolVar(&runForce, "force", false, "ignore any cached dossier")
	_ = runCmd.MarkFlagRequired("domain")
	_ = runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}
