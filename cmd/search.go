package cmd

import (
	"fmt"
	"strings"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search candidate profiles",
}

//nolint:gochecknoglobals // Cobra boilerplate
var searchSkillsCmd = &cobra.Command{
	Use:   "skills <skill>[,<skill>...]",
	Short: "Find profiles with any of the given skills",
	Long: `Find profiles whose projects or work experience list any of the given skills.

Example:
  resume-intake search skills Go,Kubernetes
  resume-intake search skills Go Rust`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchSkills,
}

//nolint:gochecknoglobals // Cobra boilerplate
var searchCompanyCmd = &cobra.Command{
	Use:   "company <name>",
	Short: "Find profiles with work experience at a company",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchCompany,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchSkillsCmd, searchCompanyCmd)
}

func runSearchSkills(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	skills := profile.SplitSkills(strings.Join(args, ","))
	if len(skills) == 0 {
		err = errors.New("at least one skill is required")
		return err
	}

	var s session
	s, err = openClient()
	if err != nil {
		return err
	}

	var users []api.User
	users, err = s.client.SearchUsersBySkills(ctx, skills)
	if err != nil {
		err = errors.Wrap(err, "skill search failed")
		return err
	}

	printLines(userListLines(users))
	return err
}

func runSearchCompany(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openClient()
	if err != nil {
		return err
	}

	var users []api.User
	users, err = s.client.GetUsersByCompany(ctx, strings.Join(args, " "))
	if err != nil {
		err = errors.Wrap(err, "company search failed")
		return err
	}

	printLines(userListLines(users))
	return err
}

func userListLines(users []api.User) (lines []string) {
	lines = append(lines, fmt.Sprintf("%d profile(s) found", len(users)))
	for _, u := range users {
		line := fmt.Sprintf("  %s <%s>", u.Name, u.Email)
		if u.IdentityKey != "" {
			line += " [" + u.IdentityKey + "]"
		}
		lines = append(lines, line)
	}
	return lines
}
