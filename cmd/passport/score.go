// cmd/passport/score.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"passport-workers/internal/common/config"
	"passport-workers/internal/common/validation"
	"passport-workers/internal/narrative"
	"passport-workers/internal/scoring"

	"github.com/spf13/cobra"
)

type scoreOptions struct {
	file       string
	pretty     bool
	augment    bool
	configPath string
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Generate a credit passport from a JSON profile",
		Long: `Reads a business profile (the generate-credit-passport input) and
prints the resulting passport. Use --file - to read from stdin.

With --augment the narrative provider from the config is called; any
provider failure falls back to the rule-based narrative.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "profile JSON file, - for stdin")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the output")
	cmd.Flags().BoolVar(&opts.augment, "augment", false, "augment the narrative with the configured provider")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file used by --augment (default: configs/config.yaml lookup)")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions) error {
	var r io.Reader = cmd.InOrStdin()
	if opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("open profile: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in scoring.Inputs
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	engine := scoring.NewEngine()
	result := engine.Generate(in)

	if opts.augment {
		aug, err := loadAugmenter(cmd, opts.configPath)
		if err != nil {
			return err
		}
		var augmented bool
		result, augmented, err = engine.GenerateAugmented(cmd.Context(), in, aug)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "narrative fallback:", err)
		} else if !augmented {
			fmt.Fprintln(cmd.ErrOrStderr(), "narrative augmentation disabled in config")
		}
	}

	res, err := validation.ValidatePassport(result)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("passport failed validation: %s", strings.Join(res.Messages(), "; "))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func loadAugmenter(cmd *cobra.Command, path string) (scoring.NarrativeAugmenter, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return narrative.New(cmd.Context(), cfg.APIs.GenAI)
}
