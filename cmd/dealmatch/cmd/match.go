package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"deal-matching-service/internal/config"
	"deal-matching-service/internal/matcher"
	"deal-matching-service/internal/models"
	"deal-matching-service/internal/parsers"
	"deal-matching-service/internal/reporter"
	"deal-matching-service/internal/store"
	apperrors "deal-matching-service/pkg/errors"
	"deal-matching-service/pkg/logger"
)

// Flags for the match command
var (
	policyID     int64
	policyFile   string
	databaseURL  string
	limit        int
	outputFormat string
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find candidate deals for a policy",
	Long: `Match loads a policy, either by id from the database or from a JSON
file produced by document recognition, and ranks existing deals by how
plausibly they correspond to it.

Examples:
  # Match a policy already stored in the database
  dealmatch match --policy-id 42 --database-url postgres://localhost/crm

  # Match a freshly recognized policy that is not persisted yet
  dealmatch match --policy-file recognized.json --database-url postgres://localhost/crm

  # Machine-readable output with a larger candidate list
  dealmatch match --policy-id 42 --limit 25 --output-format json`,

	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int64VarP(&policyID, "policy-id", "p", 0, "id of the policy to match")
	matchCmd.Flags().StringVarP(&policyFile, "policy-file", "F", "", "path to a policy JSON file")
	matchCmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (required)")
	matchCmd.Flags().IntVarP(&limit, "limit", "l", matcher.DefaultCandidateLimit, "maximum number of candidates")
	matchCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")

	viper.BindPFlag("policy-id", matchCmd.Flags().Lookup("policy-id"))
	viper.BindPFlag("policy-file", matchCmd.Flags().Lookup("policy-file"))
	viper.BindPFlag("database-url", matchCmd.Flags().Lookup("database-url"))
	viper.BindPFlag("limit", matchCmd.Flags().Lookup("limit"))
	viper.BindPFlag("output-format", matchCmd.Flags().Lookup("output-format"))
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from the config file and environment.
	policyID = viper.GetInt64("policy-id")
	policyFile = viper.GetString("policy-file")
	databaseURL = viper.GetString("database-url")
	limit = viper.GetInt("limit")
	outputFormat = viper.GetString("output-format")

	if policyID == 0 && policyFile == "" {
		return fmt.Errorf("either --policy-id or --policy-file is required")
	}
	if policyID != 0 && policyFile != "" {
		return fmt.Errorf("--policy-id and --policy-file are mutually exclusive")
	}
	if databaseURL == "" {
		return fmt.Errorf("database-url is required (flag, config file or DEALMATCH_DATABASE_URL)")
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if !reporter.ValidFormat(outputFormat) {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}
	if policyFile != "" {
		info, err := os.Stat(policyFile)
		if os.IsNotExist(err) {
			return fmt.Errorf("policy file does not exist: %s", policyFile)
		}
		if err != nil {
			return fmt.Errorf("error accessing policy file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("policy file is a directory: %s", policyFile)
		}
	}

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.LoggerConfig(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)

	st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeConnectionFailed, "store setup", err)
	}
	defer st.Close()

	policy, err := loadPolicy(ctx, st)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"policy_number": policy.PolicyNumber,
		"limit":         cfg.Limit,
	}).Debug("Starting deal matching")

	engine := matcher.NewEngine(st, cfg.Matching, log)
	candidates, err := engine.FindCandidateDeals(ctx, policy, cfg.Limit)
	if err != nil {
		return apperrors.WrapIfNeeded(err, apperrors.CategoryMatching, apperrors.CodeMatchingFailed, "deal matching failed")
	}

	return reporter.New(os.Stdout).Render(reporter.Format(cfg.OutputFormat), policy, candidates)
}

func loadPolicy(ctx context.Context, st store.Store) (*models.Policy, error) {
	if policyFile != "" {
		return parsers.LoadPolicyFile(policyFile)
	}

	policy, err := st.LoadPolicy(ctx, policyID)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "policy lookup", err).
			WithContext("policy_id", policyID)
	}
	return policy, nil
}
