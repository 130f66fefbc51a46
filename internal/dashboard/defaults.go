package dashboard

import (
	"github.com/yougis/lumen/internal/config"
)

// applyDefaults folds the specification's defaults block into component
// declarations before instantiation. A default entry carries a "type" key
// selecting the component kind it applies to; remaining keys fill in options
// the declaration leaves unset. Explicit declarations always win.
func applyDefaults(spec *config.DashboardSpec) {
	if len(spec.Defaults.Filters) > 0 {
		for name, sourceSpec := range spec.Sources {
			for filterName, filterSpec := range sourceSpec.Filters {
				sourceSpec.Filters[filterName] = defaultedFilter(filterSpec, spec.Defaults.Filters)
			}
			spec.Sources[name] = sourceSpec
		}
	}

	if len(spec.Defaults.Transforms) == 0 && len(spec.Defaults.Views) == 0 {
		return
	}
	for ti, target := range spec.Targets {
		for name, view := range target.Views {
			view.Options = mergedOptions(view.Type, view.Options, spec.Defaults.Views)
			for i, transform := range view.Transforms {
				view.Transforms[i].Options = mergedOptions(
					transform.Type, transform.Options, spec.Defaults.Transforms)
			}
			target.Views[name] = view
		}
		spec.Targets[ti] = target
	}
}

// defaultedFilter fills a filter's unset default value and label from the
// matching defaults entries.
func defaultedFilter(f config.FilterSpec, defaults []map[string]any) config.FilterSpec {
	for _, entry := range defaults {
		if kind, _ := entry["type"].(string); kind != f.Type {
			continue
		}
		if f.Default == nil {
			if v, ok := entry["default"]; ok {
				f.Default = v
			}
		}
		if f.Label == "" {
			if label, ok := entry["label"].(string); ok {
				f.Label = label
			}
		}
	}
	return f
}

// mergedOptions fills option keys absent from the declaration.
func mergedOptions(componentType string, options map[string]any, defaults []map[string]any) map[string]any {
	for _, entry := range defaults {
		if kind, _ := entry["type"].(string); kind != componentType {
			continue
		}
		for k, v := range entry {
			if k == "type" {
				continue
			}
			if options == nil {
				options = map[string]any{}
			}
			if _, set := options[k]; !set {
				options[k] = v
			}
		}
	}
	return options
}
