package cmd

import (
	"fmt"

	"github.com/nikogura/resume-intake/pkg/agent"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var applyCmd = &cobra.Command{
	Use:   "apply <job-url>",
	Short: "Have the application agent fill out a job application",
	Long: `Send a job application URL to the resume service's application agent.
The agent fills the form from your stored profile and reports which
fields it filled, which it left blank, and any errors.

Example:
  resume-intake apply https://jobs.example.com/postings/1234`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status <application-id>",
	Short: "Show the status of an application agent run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statusCmd)
}

func runApply(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openClient()
	if err != nil {
		return err
	}

	fmt.Println("Starting application agent...")

	var report agent.Report
	report, err = agent.New(s.client, s.who, s.logger).Run(ctx, args[0])
	if err != nil {
		return err
	}

	printLines(report.Lines())
	return err
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openClient()
	if err != nil {
		return err
	}

	var status api.ApplicationStatus
	status, err = agent.New(s.client, s.who, s.logger).Status(ctx, args[0])
	if err != nil {
		return err
	}

	report := agent.NewReport("", api.AutomationResponse{ApplicationID: status.ApplicationID, Result: status.Result})
	if report.Status == "" {
		report.Status = status.Status
	}
	printLines(report.Lines())
	return err
}
