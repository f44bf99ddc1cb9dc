package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/mailbox"
	"github.com/jonathan/jobpulse/internal/observability"
	"github.com/jonathan/jobpulse/internal/schemas"
	"github.com/jonathan/jobpulse/internal/types"
	embedded "github.com/jonathan/jobpulse/schemas"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file...]",
	Short: "Classify emails and print the extracted applications",
	Long: `Classify one or more emails and print the extracted applications as JSON.

Each file is either an RFC 5322 message (.eml) or JSON holding one raw email
object or an array of them ({"sender", "subject", "body", "received_date"}).
With no files, JSON is read from stdin. Nothing is written to the store.`,
	RunE: runClassify,
}

var (
	classifyExplain  bool
	classifyValidate bool
)

func init() {
	classifyCmd.Flags().BoolVar(&classifyExplain, "explain", false, "Print how each email was classified and which rule tier produced each field")
	classifyCmd.Flags().BoolVar(&classifyValidate, "validate", false, "Validate every extracted application against the output schema")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	emails, err := readEmails(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if classifyExplain {
		printer := observability.NewPrinter(out)
		for _, email := range emails {
			app, trace := eng.ParseTrace(email)
			printer.PrintTrace(email, app, trace)
		}
		return nil
	}

	apps := make([]types.ExtractedApplication, 0, len(emails))
	for _, email := range emails {
		if app, ok := eng.Parse(email); ok {
			apps = append(apps, *app)
		}
	}

	if classifyValidate {
		for i := range apps {
			if err := schemas.ValidateValue(embedded.ExtractedApplication, &apps[i]); err != nil {
				return fmt.Errorf("application %d (%s) does not validate against schema: %w", i, apps[i].Company, err)
			}
		}
	}

	return writeJSON(out, apps)
}

// readEmails loads every path, or stdin when paths is empty.
func readEmails(paths []string, stdin io.Reader) ([]types.RawEmail, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return decodeEmails(data, "stdin")
	}

	var emails []types.RawEmail
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), mailbox.Extension) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", path, err)
			}
			msg, err := mailbox.ParseMessage(f)
			_ = f.Close()
			if err != nil {
				return nil, &mailbox.ParseError{Path: path, Cause: err}
			}
			emails = append(emails, msg.RawEmail)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		decoded, err := decodeEmails(data, path)
		if err != nil {
			return nil, err
		}
		emails = append(emails, decoded...)
	}
	return emails, nil
}

// decodeEmails accepts a single raw email object or an array of them.
func decodeEmails(data []byte, source string) ([]types.RawEmail, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no emails in %s", source)
	}
	if data[0] == '[' {
		var emails []types.RawEmail
		if err := json.Unmarshal(data, &emails); err != nil {
			return nil, fmt.Errorf("failed to parse emails from %s: %w", source, err)
		}
		return emails, nil
	}
	var email types.RawEmail
	if err := json.Unmarshal(data, &email); err != nil {
		return nil, fmt.Errorf("failed to parse email from %s: %w", source, err)
	}
	return []types.RawEmail{email}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
