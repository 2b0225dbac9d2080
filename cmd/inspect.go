package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autoapply/internal/dom/htmldoc"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/group"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/traverse"
)

var (
	inspectJSON  bool
	inspectPanel bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.html>",
	Short: "Print the field descriptors built for a saved form page",
	Long:  "Parses a saved HTML snapshot and prints every fillable field as the engine would describe it. No browser or oracle is used.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := group.PageMode
		if inspectPanel {
			mode = group.PanelMode
		}
		descs, err := inspectSnapshot(cmd.Context(), args[0], mode)
		if err != nil {
			return err
		}
		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(descs)
		}
		formatDescriptors(os.Stdout, descs)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print descriptors as JSON")
	inspectCmd.Flags().BoolVar(&inspectPanel, "panel", false, "use panel duplicate suppression instead of page")
	rootCmd.AddCommand(inspectCmd)
}

// inspectSnapshot describes the controls under the form root of the
// snapshot at path, or the whole document when it has no form root.
func inspectSnapshot(ctx context.Context, path string, mode group.Mode) ([]model.FieldDescriptor, error) {
	doc, err := htmldoc.Open(path)
	if err != nil {
		return nil, err
	}
	root, err := doc.Query(ctx, nil, traverse.RootSelector)
	if err != nil {
		return nil, eris.Wrap(err, "inspect: query form root")
	}
	controls, err := doc.QueryAll(ctx, root, traverse.ControlSelector)
	if err != nil {
		return nil, eris.Wrap(err, "inspect: query controls")
	}

	fields := group.Build(ctx, extract.New(doc, extract.WithSettle(0)), controls, mode)
	out := make([]model.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Descriptor)
	}
	return out, nil
}

func formatDescriptors(out io.Writer, descs []model.FieldDescriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "QUESTION\tKIND\tSTRUCTURAL_ID\tREQUIRED\tOPTIONS")
	for _, d := range descs {
		req := ""
		if d.Required {
			req = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.Question, d.Kind, d.StructuralID, req, strings.Join(d.Options, " | "))
	}
	_ = w.Flush()
}
