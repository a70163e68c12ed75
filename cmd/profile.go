package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

//nolint:gochecknoglobals // Cobra boilerplate
var profileJSON bool

//nolint:gochecknoglobals // Cobra boilerplate
var profileDraft profile.Draft

//nolint:gochecknoglobals // Cobra boilerplate
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
}

//nolint:gochecknoglobals // Cobra boilerplate
var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

//nolint:gochecknoglobals // Cobra boilerplate
var profileSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Update profile fields",
	Long: `Update profile fields. Only the flags you pass are changed; every other
field keeps its stored value.

Example:
  resume-intake profile save --phone 555-0100 --gpa 3.8
  resume-intake profile save --linkedin https://linkedin.com/in/jane`,
	Args: cobra.NoArgs,
	RunE: runProfileSave,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSaveCmd)

	profileShowCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the profile as JSON")

	flags := profileSaveCmd.Flags()
	flags.StringVar(&profileDraft.Name, "name", "", "Display name")
	flags.StringVar(&profileDraft.Email, "email", "", "Email address")
	flags.StringVar(&profileDraft.Phone, "phone", "", "Phone number")
	flags.StringVar(&profileDraft.University, "university", "", "University")
	flags.StringVar(&profileDraft.Major, "major", "", "Major")
	flags.StringVar(&profileDraft.GPA, "gpa", "", "GPA")
	flags.StringVar(&profileDraft.LinkedinURL, "linkedin", "", "LinkedIn URL")
	flags.StringVar(&profileDraft.GithubURL, "github", "", "GitHub URL")
	flags.StringVar(&profileDraft.WebsiteURL, "website", "", "Personal website URL")
}

func runProfileShow(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openSession(ctx)
	if err != nil {
		return err
	}

	user := s.reconciler.Profile()

	if profileJSON {
		var data []byte
		data, err = json.MarshalIndent(user, "", "  ")
		if err != nil {
			err = errors.Wrap(err, "failed to marshal profile")
			return err
		}
		fmt.Println(string(data))
		return err
	}

	printLines(profileLines(user))
	return err
}

func runProfileSave(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var s session
	s, err = openSession(ctx)
	if err != nil {
		return err
	}

	draft := mergeChangedFlags(profile.DraftFromUser(s.reconciler.Profile()), profileDraft, cmd.Flags())

	var user api.User
	user, err = s.reconciler.Save(ctx, draft)
	if err != nil {
		err = errors.Wrap(err, "failed to save profile")
		return err
	}

	fmt.Println("Profile saved.")
	if getVerbose() {
		printLines(profileLines(&user))
	}

	return err
}

// mergeChangedFlags copies the fields whose flags were set onto base.
func mergeChangedFlags(base, edits profile.Draft, flags *pflag.FlagSet) (draft profile.Draft) {
	draft = base
	fields := map[string]struct {
		dst *string
		src string
	}{
		"name":       {&draft.Name, edits.Name},
		"email":      {&draft.Email, edits.Email},
		"phone":      {&draft.Phone, edits.Phone},
		"university": {&draft.University, edits.University},
		"major":      {&draft.Major, edits.Major},
		"gpa":        {&draft.GPA, edits.GPA},
		"linkedin":   {&draft.LinkedinURL, edits.LinkedinURL},
		"github":     {&draft.GithubURL, edits.GithubURL},
		"website":    {&draft.WebsiteURL, edits.WebsiteURL},
	}
	for name, field := range fields {
		if flags.Changed(name) {
			*field.dst = field.src
		}
	}
	return draft
}

// profileLines renders a profile for the terminal.
func profileLines(user *api.User) (lines []string) {
	if user == nil {
		lines = []string{"No profile loaded."}
		return lines
	}

	add := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-12s %s", label+":", value))
		}
	}

	add("Name", user.Name)
	add("Email", user.Email)
	add("Phone", user.Phone)
	add("University", user.University)
	add("Major", user.Major)
	if user.GPA != nil {
		add("GPA", strconv.FormatFloat(*user.GPA, 'f', -1, 64))
	}
	add("LinkedIn", user.LinkedinURL)
	add("GitHub", user.GithubURL)
	add("Website", user.WebsiteURL)
	if user.ResumePdf != nil {
		add("Resume", user.ResumePdf.OriginalName)
	}
	if user.ParsedResumeData != nil && len(user.ParsedResumeData.ExtractedSkills) > 0 {
		add("Skills", strings.Join(user.ParsedResumeData.ExtractedSkills, ", "))
	}

	lines = append(lines, fmt.Sprintf("\nProjects (%d):", len(user.Projects)))
	for _, p := range user.Projects {
		lines = append(lines, fmt.Sprintf("  [%s] %s", p.ID, p.ProjectName))
		lines = append(lines, entryDetail(p.Skills, p.SampleBullets)...)
	}

	lines = append(lines, fmt.Sprintf("\nWork experience (%d):", len(user.WorkExperiences)))
	for _, w := range user.WorkExperiences {
		heading := w.Company
		if w.Position != "" {
			heading = w.Position + " at " + w.Company
		}
		if dates := dateRange(w.StartDate, w.EndDate); dates != "" {
			heading += " (" + dates + ")"
		}
		lines = append(lines, fmt.Sprintf("  [%s] %s", w.ID, heading))
		lines = append(lines, entryDetail(w.Skills, w.SampleBullets)...)
	}

	return lines
}

func entryDetail(skills, bullets []string) (lines []string) {
	if len(skills) > 0 {
		lines = append(lines, "      skills: "+strings.Join(skills, ", "))
	}
	for _, b := range bullets {
		lines = append(lines, "      - "+b)
	}
	return lines
}

func dateRange(start, end string) (dates string) {
	switch {
	case start != "" && end != "":
		dates = start + " - " + end
	case start != "":
		dates = start + " - present"
	default:
		dates = end
	}
	return dates
}
