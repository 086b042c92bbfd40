package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/judge"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/pseudonym"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/verify"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List registered verification steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Listing needs only the registry shape, not live collaborators.
		engine, _ := pseudonym.New("list-only")
		reg := verify.NewRegistry(verify.Deps{
			Judge:     noopJudge{},
			Engine:    engine,
			NPI:       registry.NewNPI(),
			DEA:       registry.NewDEA(),
			OIG:       registry.NewOIG(),
			ABMS:      registry.NewABMS(),
			DCA:       registry.NewDCA(),
			Education: registry.NewEducation(),
		})

		for _, key := range reg.Keys() {
			cfg, _ := reg.Get(key)
			fmt.Printf("%-20s %s\n", cfg.Key, cfg.Name)
		}
		return nil
	},
}

type noopJudge struct{}

func (noopJudge) Evaluate(_ context.Context, _ string, _ map[string]any) (*judge.Verdict, error) {
	return nil, nil
}

func init() {
	rootCmd.AddCommand(stepsCmd)
}
