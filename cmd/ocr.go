package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

// OCRResult is the output of ocr.
type OCRResult struct {
	OK     bool         `yaml:"ok"     json:"ok"`
	Target *ElementInfo `yaml:"target" json:"target"`
	Text   string       `yaml:"text"   json:"text"`
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <selector>",
	Short: "Recognize the text drawn inside an element",
	Long:  "Capture the element and run the configured OCR command (ocr.command) on the PNG.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(sessionOptions{})
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		el, err := s.find(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		info, err := elementInfo(el)
		if err != nil {
			return err
		}
		text, err := el.OCR(ctx)
		if err != nil {
			return err
		}
		return output.Print(OCRResult{OK: true, Target: info, Text: text})
	},
}

func init() {
	rootCmd.AddCommand(ocrCmd)
	addLookupFlags(ocrCmd)
}
