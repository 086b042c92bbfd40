package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/orchestrator"
)

var (
	processApplicationID int64
	processSteps         string
	processRequester     string
	processAsync         bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run verification steps for one application",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("process"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		keys := env.Orchestrator.StepKeys()
		if processSteps != "" {
			keys = strings.Split(processSteps, ",")
		}

		job := orchestrator.Job{
			ApplicationID: processApplicationID,
			Steps:         keys,
			Requester:     processRequester,
		}

		if processAsync {
			queue := orchestrator.NewQueue(ctx, env.Orchestrator, cfg.Orchestrator.MaxConcurrentJobs)
			defer queue.Shutdown()

			handle, err := queue.Enqueue(job)
			if err != nil {
				return err
			}
			zap.L().Info("job enqueued", zap.String("job_id", handle.ID))

			res, err := handle.Wait(ctx)
			if err != nil {
				return eris.Wrap(err, "process job")
			}
			return printJSON(res)
		}

		res, err := env.Orchestrator.ProcessJob(ctx, job.ApplicationID, job.Steps, job.Requester)
		if err != nil {
			return eris.Wrap(err, "process job")
		}

		zap.L().Info("verification job complete",
			zap.Int64("application_id", res.ApplicationID),
			zap.String("status", string(res.Status)),
			zap.Int("newly_processed", res.Summary.NewlyProcessed),
			zap.Int("skipped_existing", res.Summary.SkippedExisting),
		)
		return printJSON(res)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	processCmd.Flags().Int64Var(&processApplicationID, "application", 0, "application ID (required)")
	processCmd.Flags().StringVar(&processSteps, "steps", "", "comma-separated step keys (default: all registered steps)")
	processCmd.Flags().StringVar(&processRequester, "requester", "", "actor recorded on audit writes")
	processCmd.Flags().BoolVar(&processAsync, "async", false, "run through the background job queue")
	_ = processCmd.MarkFlagRequired("application")
	rootCmd.AddCommand(processCmd)
}
