package cli

import (
	"fmt"
	"sort"

	"github.com/yougis/lumen/internal/config"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintSpecSummary prints an overview of a converted dashboard
// specification: its title and the declared sources and targets.
func PrintSpecSummary(spec *config.DashboardSpec, opts OutputOptions) {
	if opts.Quiet {
		return
	}
	fmt.Printf("  Dashboard: %s\n", spec.Config.Title)
	fmt.Printf("  Layout: %s\n", spec.Config.Layout)

	names := make([]string, 0, len(spec.Sources))
	for name := range spec.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("  Sources (%d):\n", len(names))
	for _, name := range names {
		src := spec.Sources[name]
		fmt.Printf("    %s (%s)", name, src.Type)
		if opts.Verbose {
			if len(src.Tables) > 0 {
				fmt.Printf(", %d table(s)", len(src.Tables))
			}
			if len(src.Filters) > 0 {
				fmt.Printf(", %d filter(s)", len(src.Filters))
			}
		}
		fmt.Println()
	}

	fmt.Printf("  Targets (%d):\n", len(spec.Targets))
	for _, target := range spec.Targets {
		fmt.Printf("    %s: %d view(s) over source %q", target.Title, len(target.Views), target.Source)
		if target.RefreshRate > 0 {
			fmt.Printf(", refreshes every %dms", target.RefreshRate)
		}
		fmt.Println()
		if opts.Verbose {
			viewNames := make([]string, 0, len(target.Views))
			for name := range target.Views {
				viewNames = append(viewNames, name)
			}
			sort.Strings(viewNames)
			for _, name := range viewNames {
				view := target.Views[name]
				fmt.Printf("      %s (%s, table %q", name, view.Type, view.Table)
				if len(view.Transforms) > 0 {
					fmt.Printf(", %d transform(s)", len(view.Transforms))
				}
				fmt.Println(")")
			}
		}
	}
}
