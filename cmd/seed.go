package cmd

import (
	"closer-backend/internal/config"
	"closer-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var questionsFile string

var seedCmd = &cobra.Command{
	Use:   "seed-questions",
	Short: "Replace the question set with the contents of a YAML file",
	Long: `Loads questions from a YAML file into the database. File order is the
rotation order; re-seeding keeps the ids of questions whose position did not change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.Driver == config.StorageDriverMemory {
			log.Warn().Msg("Seeding the in-memory store has no lasting effect")
		}

		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		_, err = services.NewQuestionService(store.Questions).SeedFromFile(cmd.Context(), questionsFile)
		return err
	},
}

func init() {
	seedCmd.Flags().StringVarP(&questionsFile, "file", "f", "questions.yaml", "YAML file with the questions")
}
