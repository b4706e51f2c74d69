// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/schedule"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled study jobs",
	}
	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleAddCmd(),
		newScheduleRemoveCmd(),
		newScheduleEnableCmd(),
		newScheduleDisableCmd(),
	)
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all scheduled jobs",
		RunE:  runScheduleList,
	}
}

func newScheduleAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new scheduled study job",
		RunE:  runScheduleAdd,
	}
	cmd.Flags().StringP("name", "n", "", "Job name")
	cmd.MarkFlagRequired("name")
	cmd.Flags().String("persona", "", "Persona the job studies as")
	cmd.MarkFlagRequired("persona")
	cmd.Flags().String("provider", "", "Provider to study")
	cmd.MarkFlagRequired("provider")
	cmd.Flags().StringArrayP("prompt", "m", nil, "Prompt to study (repeatable)")
	cmd.MarkFlagRequired("prompt")
	cmd.Flags().Int64P("every", "e", 0, "Run every N seconds")
	cmd.Flags().StringP("cron", "c", "", "Cron expression (e.g. '0 9 * * *')")
	return cmd
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job_id>",
		Short: "Remove a job by ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRemove,
	}
}

func newScheduleEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <job_id>",
		Short: "Enable a job",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleEnable,
	}
}

func newScheduleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <job_id>",
		Short: "Disable a job",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleDisable,
	}
}

func getScheduleStorePath() string {
	paths := config.ResolveRuntimePaths()
	return filepath.Join(paths.ScheduleDir, "jobs.json")
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	svc := schedule.NewService(getScheduleStorePath())
	jobs := svc.ListJobs(true)

	if len(jobs) == 0 {
		fmt.Println("No scheduled jobs.")
		return nil
	}

	fmt.Println("\nScheduled Jobs:")
	fmt.Println("----------------")
	for _, job := range jobs {
		var spec string
		switch {
		case job.Schedule.Kind == schedule.KindEvery && job.Schedule.EveryMS != nil:
			spec = fmt.Sprintf("every %ds", *job.Schedule.EveryMS/1000)
		case job.Schedule.Kind == schedule.KindCron:
			spec = job.Schedule.Expr
		default:
			spec = "one-time"
		}

		nextRun := "scheduled"
		if job.State.NextRunAtMS != nil {
			nextRun = time.UnixMilli(*job.State.NextRunAtMS).Format("2006-01-02 15:04")
		}

		status := "enabled"
		if !job.Enabled {
			status = "disabled"
		}

		fmt.Printf("  %s (%s)\n", job.Name, job.ID)
		fmt.Printf("    Schedule: %s\n", spec)
		fmt.Printf("    Target: %s as %s (%d prompts)\n", job.Provider, job.PersonaID, len(job.Prompts))
		fmt.Printf("    Status: %s\n", status)
		fmt.Printf("    Next run: %s\n", nextRun)
		if job.State.LastStatus != "" {
			fmt.Printf("    Last run: %s\n", job.State.LastStatus)
		}
	}
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	personaID, _ := cmd.Flags().GetString("persona")
	provider, _ := cmd.Flags().GetString("provider")
	prompts, _ := cmd.Flags().GetStringArray("prompt")
	everySec, _ := cmd.Flags().GetInt64("every")
	cronExpr, _ := cmd.Flags().GetString("cron")

	if everySec == 0 && cronExpr == "" {
		fmt.Println("Error: Either --every or --cron must be specified")
		return nil
	}

	var spec schedule.Spec
	if everySec != 0 {
		everyMS := everySec * 1000
		spec = schedule.Spec{Kind: schedule.KindEvery, EveryMS: &everyMS}
	} else {
		spec = schedule.Spec{Kind: schedule.KindCron, Expr: cronExpr}
	}

	svc := schedule.NewService(getScheduleStorePath())
	job, err := svc.AddJob(name, spec, personaID, provider, prompts)
	if err != nil {
		fmt.Printf("Error adding job: %v\n", err)
		return nil
	}

	fmt.Printf("✓ Added job '%s' (%s)\n", job.Name, job.ID)
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	svc := schedule.NewService(getScheduleStorePath())
	if svc.RemoveJob(jobID) {
		fmt.Printf("✓ Removed job %s\n", jobID)
	} else {
		fmt.Printf("✗ Job %s not found\n", jobID)
	}
	return nil
}

func runScheduleEnable(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	svc := schedule.NewService(getScheduleStorePath())
	job := svc.EnableJob(jobID, true)
	if job != nil {
		fmt.Printf("✓ Job '%s' enabled\n", job.Name)
	} else {
		fmt.Printf("✗ Job %s not found\n", jobID)
	}
	return nil
}

func runScheduleDisable(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	svc := schedule.NewService(getScheduleStorePath())
	job := svc.EnableJob(jobID, false)
	if job != nil {
		fmt.Printf("✓ Job '%s' disabled\n", job.Name)
	} else {
		fmt.Printf("✗ Job %s not found\n", jobID)
	}
	return nil
}
