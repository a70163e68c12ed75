package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/extraction"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var draftDryRun bool

//nolint:gochecknoglobals // Cobra boilerplate
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Work with profile drafts",
}

//nolint:gochecknoglobals // Cobra boilerplate
var draftApplyCmd = &cobra.Command{
	Use:   "apply <extraction.json>",
	Short: "Merge a saved extraction into your profile",
	Long: `Merge a saved parser output (from 'upload --extraction-out' or a raw
upload response) into your profile without uploading the PDF again.

Example:
  resume-intake draft apply cv-extraction.json --dry-run
  resume-intake draft apply cv-extraction.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftApply,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(draftApplyCmd)
	draftApplyCmd.Flags().BoolVar(&draftDryRun, "dry-run", false, "Print the merged draft without saving")
}

func runDraftApply(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	var result api.ExtractionResult
	result, err = extraction.Load(args[0])
	if err != nil {
		return err
	}

	var s session
	s, err = openSession(ctx)
	if err != nil {
		return err
	}

	if getVerbose() {
		printLines(extraction.Summary(result))
	}

	draft := profile.ApplyExtraction(profile.DraftFromUser(s.reconciler.Profile()), result)
	err = finishDraft(ctx, s, draft, !draftDryRun)
	return err
}

// finishDraft prints the draft and saves it when asked.
func finishDraft(ctx context.Context, s session, draft profile.Draft, save bool) (err error) {
	fmt.Println("\nDraft:")
	printLines(draftLines(draft))

	if !save {
		fmt.Println("\nDraft not saved.")
		return err
	}

	_, err = s.reconciler.Save(ctx, draft)
	if err != nil {
		err = errors.Wrap(err, "failed to save profile")
		return err
	}

	fmt.Println("\nProfile saved.")
	if note := unsavedNote(draft); note != "" {
		fmt.Println(note)
	}
	return err
}

// unsavedNote names the draft blocks that saving does not persist.
func unsavedNote(draft profile.Draft) (note string) {
	var blocks []string
	if draft.Skills != "" {
		blocks = append(blocks, "skills")
	}
	if draft.Experience != "" {
		blocks = append(blocks, "experience")
	}
	if draft.Projects != "" {
		blocks = append(blocks, "projects")
	}
	if len(blocks) == 0 {
		return note
	}

	note = fmt.Sprintf("Note: the %s shown above are for review only and were not saved; use 'resume-intake project' and 'resume-intake experience' to add entries.", strings.Join(blocks, ", "))
	return note
}

// draftLines renders the non-empty draft fields.
func draftLines(draft profile.Draft) (lines []string) {
	fields := []struct {
		label string
		value string
	}{
		{"Name", draft.Name},
		{"Email", draft.Email},
		{"Phone", draft.Phone},
		{"University", draft.University},
		{"Major", draft.Major},
		{"GPA", draft.GPA},
		{"LinkedIn", draft.LinkedinURL},
		{"GitHub", draft.GithubURL},
		{"Website", draft.WebsiteURL},
		{"Skills", draft.Skills},
	}
	for _, f := range fields {
		if f.value != "" {
			lines = append(lines, fmt.Sprintf("  %-12s %s", f.label+":", f.value))
		}
	}

	if draft.Experience != "" {
		lines = append(lines, "", "  Experience:", indent(draft.Experience))
	}
	if draft.Projects != "" {
		lines = append(lines, "", "  Projects:", indent(draft.Projects))
	}

	return lines
}

func indent(text string) (out string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}
	out = strings.Join(lines, "\n")
	return out
}
