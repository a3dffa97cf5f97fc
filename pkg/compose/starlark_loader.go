package compose

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"gopkg.in/yaml.v3"
)

// starlarkTimeout bounds script evaluation so a runaway loop cannot hang
// the CLI.
const starlarkTimeout = 30 * time.Second

// ParseStarlark evaluates a .star compose program and runs its result
// through the same strict decode path as plain YAML. The program must
// assign its document to a global named "compose". load() is unavailable
// and print output is discarded, so evaluation has no side effects.
func ParseStarlark(filename string, data []byte) (*IncusCompose, error) {
	thread := &starlark.Thread{
		Name:  "incus-composer",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}

	type evalResult struct {
		globals starlark.StringDict
		err     error
	}
	done := make(chan evalResult, 1)
	go func() {
		globals, err := starlark.ExecFile(thread, filename, data, predeclared)
		done <- evalResult{globals: globals, err: err}
	}()

	var globals starlark.StringDict
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("starlark evaluation failed: %w", r.err)
		}
		globals = r.globals
	case <-time.After(starlarkTimeout):
		thread.Cancel("timeout")
		return nil, fmt.Errorf("starlark evaluation timed out after %v", starlarkTimeout)
	}

	composeVal, ok := globals["compose"]
	if !ok {
		return nil, fmt.Errorf("%s does not define a global named compose", filename)
	}
	tree, err := fromStarlarkValue(composeVal)
	if err != nil {
		return nil, fmt.Errorf("convert compose value: %w", err)
	}
	raw, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode compose value: %w", err)
	}
	return Parse(raw)
}

// fromStarlarkValue converts a Starlark value into the plain Go shape the
// YAML encoder understands. Dict keys must be strings.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			converted, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = converted
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{}, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
