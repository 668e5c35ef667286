package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuropathx/neuropathx/internal/samples"
)

func newSamplesCmd(a *app) *cobra.Command {
	var tree bool
	var files bool
	back := -1

	cmd := &cobra.Command{
		Use:   "samples [folder/...]",
		Short: "Browse the sample scan catalog",
		Long: `Lists a folder of the sample catalog with its breadcrumb trail. Folder
names are separated by "/". Any file path shown can be passed to
"neuropathx diagnose --sample".`,
		Example: `  # List the top-level folders
  neuropathx samples

  # List the glioma samples
  neuropathx samples Glioma

  # From Glioma, jump back to the Home breadcrumb
  neuropathx samples Glioma --back 0

  # Print the whole catalog
  neuropathx samples --tree`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := a.manifest()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if tree {
				printTree(w, manifest.Root, 0)
				fmt.Fprintf(w, "\nDefault sample: %s\n", manifest.Default)
				return nil
			}

			if files {
				for _, f := range manifest.Files() {
					fmt.Fprintln(w, f.Path)
				}
				return nil
			}

			nav := samples.NewNavigator(manifest.Root)
			if len(args) == 1 {
				if err := nav.Open(args[0]); err != nil {
					return err
				}
			}
			if back >= 0 {
				if err := nav.Back(back); err != nil {
					return err
				}
			}

			fmt.Fprintln(w, strings.Join(nav.Breadcrumbs(), " > "))
			for _, child := range nav.Current().Children {
				if child.IsFolder() {
					fmt.Fprintf(w, "  %s/\n", child.Name)
					continue
				}
				fmt.Fprintf(w, "  %-20s %s\n", child.Name, child.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "Print the whole catalog")
	cmd.Flags().BoolVar(&files, "files", false, "Print every sample path, one per line")
	cmd.Flags().IntVar(&back, "back", -1, "Jump to this breadcrumb index of the listed folder (0 is Home)")

	return cmd
}

func printTree(w io.Writer, n *samples.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if !n.IsFolder() {
		fmt.Fprintf(w, "%s%s (%s)\n", indent, n.Name, n.Path)
		return
	}
	fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}
