package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"msgboard/relay/internal/store"
	"msgboard/relay/internal/types"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewMessagesCommand prints the stored messages.
func NewMessagesCommand(rootOpts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Print stored messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
			}
			st := store.New(rootOpts.Config.Storage.Path, store.WithLogger(rootOpts.Logger))
			doc, ok := st.ReadAll()
			if !ok {
				doc = types.Document{}
			}
			return printMessages(cmd.OutOrStdout(), format, doc)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	return cmd
}

func printMessages(w io.Writer, format string, doc types.Document) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		return enc.Encode(doc)
	}
	entries := doc.Entries()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no messages")
		return err
	}
	for _, e := range entries {
		keys := make([]string, 0, len(e.Record))
		for k := range e.Record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if _, err := fmt.Fprintln(w, e.Timestamp); err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", k, e.Record[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
