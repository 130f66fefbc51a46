package transforms

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dop251/goja"

	"github.com/yougis/lumen/internal/pathutil"
	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("script", newScript)
}

// MaxScriptLength bounds the script source size.
const MaxScriptLength = 100 * 1024

// scriptTransform runs a user JavaScript function over every row. The script
// must define transform(record); returning null drops the row, returning an
// object replaces it. Goja sandboxes the script: no file system or network
// access.
//
// A goja runtime is not safe for concurrent use, so applications are
// serialized per instance.
type scriptTransform struct {
	source string

	mu      sync.Mutex
	runtime *goja.Runtime
	fn      goja.Callable
}

func newScript(options map[string]any) (Transform, error) {
	source := optString(options, "script", "")
	scriptFile := optString(options, "script_file", "")
	switch {
	case source != "" && scriptFile != "":
		return nil, fmt.Errorf("cannot specify both 'script' and 'script_file'")
	case source == "" && scriptFile == "":
		return nil, fmt.Errorf("requires 'script' or 'script_file'")
	case scriptFile != "":
		if err := pathutil.ValidateFilePath(scriptFile); err != nil {
			return nil, fmt.Errorf("invalid script file path: %w", err)
		}
		content, err := os.ReadFile(scriptFile)
		if err != nil {
			return nil, fmt.Errorf("reading script file: %w", err)
		}
		source = string(content)
	}
	if len(source) > MaxScriptLength {
		return nil, fmt.Errorf("script exceeds maximum length of %d bytes", MaxScriptLength)
	}

	runtime := goja.New()
	if _, err := runtime.RunString(source); err != nil {
		return nil, fmt.Errorf("script compilation failed: %w", err)
	}
	fnValue := runtime.Get("transform")
	if fnValue == nil || goja.IsUndefined(fnValue) {
		return nil, fmt.Errorf("script must define a transform function")
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fmt.Errorf("'transform' is not a function")
	}

	return &scriptTransform{source: source, runtime: runtime, fn: fn}, nil
}

func (t *scriptTransform) Name() string { return "script" }

func (t *scriptTransform) Apply(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			t.runtime.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer t.runtime.ClearInterrupt()

	records := make([]map[string]any, 0, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		result, err := t.fn(goja.Undefined(), t.runtime.ToValue(ds.Row(i)))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if result == nil || goja.IsNull(result) || goja.IsUndefined(result) {
			continue
		}
		record, ok := result.Export().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: transform must return an object or null, got %T",
				i, result.Export())
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return ds.Empty(), nil
	}
	return dataset.FromRecords(records, outputFields(ds, records))
}

// outputFields orders result columns: surviving input columns first, in
// their original order, then script-added fields sorted by name.
func outputFields(ds *dataset.Dataset, records []map[string]any) []string {
	present := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			present[k] = true
		}
	}
	var fields []string
	for _, name := range ds.ColumnNames() {
		if present[name] {
			fields = append(fields, name)
			delete(present, name)
		}
	}
	added := make([]string, 0, len(present))
	for name := range present {
		added = append(added, name)
	}
	sort.Strings(added)
	return append(fields, added...)
}
