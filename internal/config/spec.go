package config

// DashboardSpec is the typed form of a dashboard specification document.
// It is produced by ConvertToSpec after parsing and schema validation.
type DashboardSpec struct {
	// Root is the absolute directory the specification was loaded from.
	// Relative table paths and cache directories resolve against it.
	Root string

	// Config holds high-level display options for the dashboard.
	Config ConfigSpec

	// Variables are values interpolated into the document before parsing,
	// referenced as {{variables.name}}.
	Variables map[string]interface{}

	// Defaults are per-component-type parameter defaults applied before
	// instantiation.
	Defaults DefaultsSpec

	// Sources maps source names to their declarations.
	Sources map[string]SourceSpec

	// Targets lists the dashboard pages, each monitoring one source.
	Targets []TargetSpec
}

// ConfigSpec holds high-level configuration options for the dashboard.
type ConfigSpec struct {
	// Title of the dashboard.
	Title string

	// Layout of targets: "grid", "tabs" or "column".
	Layout string

	// NCols is the number of columns for grid layout.
	NCols int

	// Theme name, passed through to the rendering collaborator.
	Theme string
}

// DefaultsSpec holds parameter defaults per component type.
// Each entry carries a "type" key selecting the component kind it applies to.
type DefaultsSpec struct {
	Filters    []map[string]interface{}
	Sources    []map[string]interface{}
	Transforms []map[string]interface{}
	Views      []map[string]interface{}
}

// SourceSpec declares one data source.
type SourceSpec struct {
	// Type selects the source implementation ("file", "rest", "derived").
	Type string

	// CacheDir enables the on-disk cache when non-empty.
	CacheDir string

	// Shared marks the source as reusable across dashboards.
	Shared bool

	// Tables maps table names to locations (paths or URLs). Used by file
	// sources.
	Tables map[string]string

	// URL is the endpoint of a rest source.
	URL string

	// Source names the wrapped source of a derived source.
	Source string

	// Filters declares the filters bound to this source's fields.
	Filters map[string]FilterSpec

	// Options carries remaining source-type specific settings.
	Options map[string]interface{}
}

// Filter kinds. The set is closed: a filter is either user-controlled
// (widget) or bound to another component's live state (param).
const (
	FilterKindWidget = "widget"
	FilterKindParam  = "param"
)

// FilterSpec declares one filter.
type FilterSpec struct {
	// Type is the filter kind: "widget" or "param".
	Type string

	// Field is the table column a widget filter narrows.
	Field string

	// Parameter is the dotted reference a param filter resolves, e.g.
	// "scatter.selection_expr".
	Parameter string

	// Table restricts the filter to one table; empty means all tables.
	Table string

	// Label is the user-facing name; defaults to the filter name.
	Label string

	// Default is the initial filter value.
	Default interface{}
}

// TransformSpec declares one transform in a view's chain.
type TransformSpec struct {
	// Type selects the transform implementation.
	Type string

	// Options carries the transform parameters.
	Options map[string]interface{}
}

// ViewSpec declares one view within a target.
type ViewSpec struct {
	// Type selects the view/render kind (e.g. "hvplot", "table", "indicator").
	Type string

	// Table is the source table feeding the view's pipeline.
	Table string

	// SelectionGroup links this view to sibling views for cross-filtering.
	SelectionGroup string

	// Transforms is the ordered transform chain of the view's pipeline.
	Transforms []TransformSpec

	// Options carries remaining display options, opaque to the engine.
	Options map[string]interface{}
}

// TargetSpec declares one dashboard page.
type TargetSpec struct {
	// Title of the target.
	Title string

	// Source names the source feeding this target's pipelines.
	Source string

	// Filters lists names of source filters exposed on this target.
	Filters []string

	// Views maps view names to their declarations.
	Views map[string]ViewSpec

	// Layout is a declarative layout description handed to the renderer.
	Layout []interface{}

	// RefreshRate triggers periodic source refresh when positive
	// (milliseconds).
	RefreshRate int

	// Height and Width are card dimensions passed to the renderer.
	Height int
	Width  int
}
