package config

import (
	"fmt"
)

// ConvertToSpec converts parsed specification data to a DashboardSpec.
// The input data should have been validated against the schema before calling
// this function; conversion still guards against shape surprises so that an
// unvalidated document fails with a useful error instead of a panic.
func ConvertToSpec(data map[string]interface{}) (*DashboardSpec, error) {
	if data == nil {
		return nil, fmt.Errorf("specification data is nil")
	}

	spec := &DashboardSpec{
		Sources: map[string]SourceSpec{},
	}

	if cfg, ok := data["config"].(map[string]interface{}); ok {
		spec.Config = ConfigSpec{
			Title:  getString(cfg, "title", "Lumen Dashboard"),
			Layout: getString(cfg, "layout", "grid"),
			NCols:  getInt(cfg, "ncols", 3),
			Theme:  getString(cfg, "theme", "default"),
		}
	} else {
		spec.Config = ConfigSpec{Title: "Lumen Dashboard", Layout: "grid", NCols: 3, Theme: "default"}
	}

	if vars, ok := data["variables"].(map[string]interface{}); ok {
		spec.Variables = vars
	}

	if defaults, ok := data["defaults"].(map[string]interface{}); ok {
		spec.Defaults = DefaultsSpec{
			Filters:    getMapSlice(defaults, "filters"),
			Sources:    getMapSlice(defaults, "sources"),
			Transforms: getMapSlice(defaults, "transforms"),
			Views:      getMapSlice(defaults, "views"),
		}
	}

	sourcesData, ok := data["sources"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'sources' section")
	}
	for name, raw := range sourcesData {
		sourceMap, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid source %q", name)
		}
		source, err := convertSource(sourceMap)
		if err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", name, err)
		}
		spec.Sources[name] = source
	}

	targetsData, ok := data["targets"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'targets' section")
	}
	for i, raw := range targetsData {
		targetMap, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid target at index %d", i)
		}
		target, err := convertTarget(targetMap)
		if err != nil {
			return nil, fmt.Errorf("invalid target at index %d: %w", i, err)
		}
		if _, exists := spec.Sources[target.Source]; !exists {
			return nil, fmt.Errorf("target %q references unknown source %q", target.Title, target.Source)
		}
		spec.Targets = append(spec.Targets, target)
	}

	return spec, nil
}

// convertSource converts one source declaration.
func convertSource(data map[string]interface{}) (SourceSpec, error) {
	sourceType, ok := data["type"].(string)
	if !ok || sourceType == "" {
		return SourceSpec{}, fmt.Errorf("missing required field 'type'")
	}

	source := SourceSpec{
		Type:     sourceType,
		CacheDir: getString(data, "cache_dir", ""),
		Shared:   getBool(data, "shared"),
		URL:      getString(data, "url", ""),
		Source:   getString(data, "source", ""),
		Tables:   map[string]string{},
		Filters:  map[string]FilterSpec{},
		Options:  map[string]interface{}{},
	}

	if tables, okTables := data["tables"].(map[string]interface{}); okTables {
		for name, loc := range tables {
			locStr, isStr := loc.(string)
			if !isStr {
				return SourceSpec{}, fmt.Errorf("table %q location must be a string", name)
			}
			source.Tables[name] = locStr
		}
	}

	if filters, okFilters := data["filters"].(map[string]interface{}); okFilters {
		for name, raw := range filters {
			filterMap, isMap := raw.(map[string]interface{})
			if !isMap {
				return SourceSpec{}, fmt.Errorf("invalid filter %q", name)
			}
			filter, err := convertFilter(filterMap)
			if err != nil {
				return SourceSpec{}, fmt.Errorf("invalid filter %q: %w", name, err)
			}
			if filter.Label == "" {
				filter.Label = name
			}
			source.Filters[name] = filter
		}
	}

	known := map[string]bool{
		"type": true, "cache_dir": true, "shared": true, "tables": true,
		"url": true, "source": true, "filters": true,
	}
	for k, v := range data {
		if !known[k] {
			source.Options[k] = v
		}
	}

	return source, nil
}

// convertFilter converts one filter declaration.
func convertFilter(data map[string]interface{}) (FilterSpec, error) {
	filterType, ok := data["type"].(string)
	if !ok {
		return FilterSpec{}, fmt.Errorf("missing required field 'type'")
	}

	filter := FilterSpec{
		Type:      filterType,
		Field:     getString(data, "field", ""),
		Parameter: getString(data, "parameter", ""),
		Table:     getString(data, "table", ""),
		Label:     getString(data, "label", ""),
		Default:   data["default"],
	}

	switch filterType {
	case FilterKindWidget:
		if filter.Field == "" {
			return FilterSpec{}, fmt.Errorf("widget filter requires 'field'")
		}
	case FilterKindParam:
		if filter.Parameter == "" {
			return FilterSpec{}, fmt.Errorf("param filter requires 'parameter'")
		}
	default:
		return FilterSpec{}, fmt.Errorf("unknown filter type %q", filterType)
	}

	return filter, nil
}

// convertTarget converts one target declaration.
func convertTarget(data map[string]interface{}) (TargetSpec, error) {
	title, ok := data["title"].(string)
	if !ok || title == "" {
		return TargetSpec{}, fmt.Errorf("missing required field 'title'")
	}
	sourceName, ok := data["source"].(string)
	if !ok || sourceName == "" {
		return TargetSpec{}, fmt.Errorf("missing required field 'source'")
	}

	target := TargetSpec{
		Title:       title,
		Source:      sourceName,
		Views:       map[string]ViewSpec{},
		RefreshRate: getInt(data, "refresh_rate", 0),
		Height:      getInt(data, "height", 0),
		Width:       getInt(data, "width", 0),
	}

	if filters, okFilters := data["filters"].([]interface{}); okFilters {
		for i, raw := range filters {
			name, isStr := raw.(string)
			if !isStr {
				return TargetSpec{}, fmt.Errorf("filter reference at index %d must be a string", i)
			}
			target.Filters = append(target.Filters, name)
		}
	}

	viewsData, ok := data["views"].(map[string]interface{})
	if !ok {
		return TargetSpec{}, fmt.Errorf("missing or invalid 'views' section")
	}
	for name, raw := range viewsData {
		viewMap, isMap := raw.(map[string]interface{})
		if !isMap {
			return TargetSpec{}, fmt.Errorf("invalid view %q", name)
		}
		view, err := convertView(viewMap)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("invalid view %q: %w", name, err)
		}
		target.Views[name] = view
	}

	if layout, okLayout := data["layout"].([]interface{}); okLayout {
		target.Layout = layout
	}

	return target, nil
}

// convertView converts one view declaration.
func convertView(data map[string]interface{}) (ViewSpec, error) {
	viewType, ok := data["type"].(string)
	if !ok || viewType == "" {
		return ViewSpec{}, fmt.Errorf("missing required field 'type'")
	}
	table, ok := data["table"].(string)
	if !ok || table == "" {
		return ViewSpec{}, fmt.Errorf("missing required field 'table'")
	}

	view := ViewSpec{
		Type:           viewType,
		Table:          table,
		SelectionGroup: getString(data, "selection_group", ""),
		Options:        map[string]interface{}{},
	}

	if transforms, okT := data["transforms"].([]interface{}); okT {
		for i, raw := range transforms {
			tMap, isMap := raw.(map[string]interface{})
			if !isMap {
				return ViewSpec{}, fmt.Errorf("invalid transform at index %d", i)
			}
			tType, okType := tMap["type"].(string)
			if !okType || tType == "" {
				return ViewSpec{}, fmt.Errorf("transform at index %d missing 'type'", i)
			}
			options := map[string]interface{}{}
			for k, v := range tMap {
				if k != "type" {
					options[k] = v
				}
			}
			view.Transforms = append(view.Transforms, TransformSpec{Type: tType, Options: options})
		}
	}

	known := map[string]bool{
		"type": true, "table": true, "selection_group": true, "transforms": true,
	}
	for k, v := range data {
		if !known[k] {
			view.Options[k] = v
		}
	}

	return view, nil
}

// getString extracts a string field with a default.
func getString(data map[string]interface{}, key, def string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return def
}

// getBool extracts a boolean field, defaulting to false.
func getBool(data map[string]interface{}, key string) bool {
	v, _ := data[key].(bool)
	return v
}

// getInt extracts an integer field with a default. YAML decodes integers as
// int while JSON decodes them as float64; both are accepted.
func getInt(data map[string]interface{}, key string, def int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// getMapSlice extracts a list of maps.
func getMapSlice(data map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, isMap := item.(map[string]interface{}); isMap {
			out = append(out, m)
		}
	}
	return out
}
