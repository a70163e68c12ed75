package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/extraction"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var uploadSave bool

//nolint:gochecknoglobals // Cobra boilerplate
var uploadExtractionOut string

//nolint:gochecknoglobals // Cobra boilerplate
var uploadCmd = &cobra.Command{
	Use:   "upload <resume.pdf>",
	Short: "Upload a resume PDF and merge what the parser found",
	Long: `Upload a resume PDF to the resume service. The parsed fields are merged
into a draft of your profile: empty fields are filled and fields you already
have are kept. The skills, experience and projects the parser found are
shown for review only; saving persists the contact and education fields.

Nothing is saved unless --save is given. Use --extraction-out to keep the
parser output so it can be applied later with 'resume-intake draft apply'.

Example:
  resume-intake upload ~/cv.pdf
  resume-intake upload ~/cv.pdf --save
  resume-intake upload ~/cv.pdf --extraction-out cv-extraction.json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadSave, "save", false, "Save the merged draft to your profile")
	uploadCmd.Flags().StringVar(&uploadExtractionOut, "extraction-out", "", "Write the parser output to this file")
}

func runUpload(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := commandContext()
	defer cancel()

	path := args[0]

	var s session
	s, err = openSession(ctx)
	if err != nil {
		return err
	}

	var file *os.File
	file, err = os.Open(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open resume: %s", path)
		return err
	}
	defer file.Close()

	fmt.Printf("Uploading %s...\n", filepath.Base(path))

	var result api.ExtractionResult
	result, err = s.reconciler.UploadResume(ctx, filepath.Base(path), file)
	if err != nil {
		err = errors.Wrap(err, "failed to upload resume")
		return err
	}

	printLines(extraction.Summary(result))

	if uploadExtractionOut != "" {
		err = extraction.Save(uploadExtractionOut, result)
		if err != nil {
			return err
		}
		fmt.Printf("Extraction saved at: %s\n", uploadExtractionOut)
	}

	draft := profile.ApplyExtraction(profile.DraftFromUser(s.reconciler.Profile()), result)
	err = finishDraft(ctx, s, draft, uploadSave)
	return err
}
