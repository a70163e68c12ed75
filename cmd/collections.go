package cmd

import (
	"context"
	"fmt"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var projectName string

//nolint:gochecknoglobals // Cobra boilerplate
var projectSkills string

//nolint:gochecknoglobals // Cobra boilerplate
var projectBullets []string

//nolint:gochecknoglobals // Cobra boilerplate
var workCompany string

//nolint:gochecknoglobals // Cobra boilerplate
var workPosition string

//nolint:gochecknoglobals // Cobra boilerplate
var workStart string

//nolint:gochecknoglobals // Cobra boilerplate
var workEnd string

//nolint:gochecknoglobals // Cobra boilerplate
var workSkills string

//nolint:gochecknoglobals // Cobra boilerplate
var workBullets []string

//nolint:gochecknoglobals // Cobra boilerplate
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the projects on your profile",
	Long: `Add, update and delete projects. Update replaces the whole entry with
the flags given.

Example:
  resume-intake project add --name resume-intake --skills "Go, cobra" --bullet "Built the CLI"
  resume-intake project update 65f0c0ffee --name resume-intake --skills Go
  resume-intake project delete 65f0c0ffee`,
}

//nolint:gochecknoglobals // Cobra boilerplate
var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("project added", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.AddProject(ctx, projectInput())
		})
		return err
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var projectUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Replace a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("project updated", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.UpdateProject(ctx, args[0], projectInput())
		})
		return err
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("project deleted", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.DeleteProject(ctx, args[0])
		})
		return err
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var experienceCmd = &cobra.Command{
	Use:   "experience",
	Short: "Manage the work experience on your profile",
	Long: `Add, update and delete work experience entries. Update replaces the whole
entry with the flags given. Leave --end empty for a current position.

Example:
  resume-intake experience add --company Acme --position Engineer --start 2021-01
  resume-intake experience update 65f0c0ffee --company Acme --position "Senior Engineer" --start 2021-01
  resume-intake experience delete 65f0c0ffee`,
}

//nolint:gochecknoglobals // Cobra boilerplate
var experienceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a work experience entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("work experience added", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.AddWorkExperience(ctx, experienceInput())
		})
		return err
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var experienceUpdateCmd = &cobra.Command{
	Use:   "update <experience-id>",
	Short: "Replace a work experience entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("work experience updated", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.UpdateWorkExperience(ctx, args[0], experienceInput())
		})
		return err
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var experienceDeleteCmd = &cobra.Command{
	Use:   "delete <experience-id>",
	Short: "Delete a work experience entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = runCollection("work experience deleted", func(ctx context.Context, s session) (api.User, error) {
			return s.reconciler.DeleteWorkExperience(ctx, args[0])
		})
		return err
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectUpdateCmd, projectDeleteCmd)
	for _, c := range []*cobra.Command{projectAddCmd, projectUpdateCmd} {
		c.Flags().StringVar(&projectName, "name", "", "Project name (required)")
		c.Flags().StringVar(&projectSkills, "skills", "", "Comma separated skills")
		c.Flags().StringArrayVar(&projectBullets, "bullet", nil, "Sample bullet (repeatable)")
	}

	rootCmd.AddCommand(experienceCmd)
	experienceCmd.AddCommand(experienceAddCmd, experienceUpdateCmd, experienceDeleteCmd)
	for _, c := range []*cobra.Command{experienceAddCmd, experienceUpdateCmd} {
		c.Flags().StringVar(&workCompany, "company", "", "Company (required)")
		c.Flags().StringVar(&workPosition, "position", "", "Position")
		c.Flags().StringVar(&workStart, "start", "", "Start date")
		c.Flags().StringVar(&workEnd, "end", "", "End date (empty for current)")
		c.Flags().StringVar(&workSkills, "skills", "", "Comma separated skills")
		c.Flags().StringArrayVar(&workBullets, "bullet", nil, "Sample bullet (repeatable)")
	}
}

func projectInput() (input api.ProjectInput) {
	input = api.ProjectInput{
		ProjectName:   projectName,
		Skills:        profile.SplitSkills(projectSkills),
		SampleBullets: projectBullets,
	}
	return input
}

func experienceInput() (input api.WorkExperienceInput) {
	input = api.WorkExperienceInput{
		Company:       workCompany,
		Position:      workPosition,
		StartDate:     workStart,
		EndDate:       workEnd,
		Skills:        profile.SplitSkills(workSkills),
		SampleBullets: workBullets,
	}
	return input
}

// runCollection bootstraps the profile, runs one collection change, and prints the result.
func runCollection(done string, change func(ctx context.Context, s session) (api.User, error)) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openSession(ctx)
	if err != nil {
		return err
	}

	var user api.User
	user, err = change(ctx, s)
	if err != nil {
		err = errors.Wrap(err, "failed to change profile")
		return err
	}

	fmt.Printf("Profile updated: %s.\n", done)
	printLines(profileLines(&user))
	return err
}
