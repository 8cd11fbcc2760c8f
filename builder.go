package rundown

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/hostloop/rundown/logging"
)

// Builder assembles a Controller from definition files: it applies the
// logging and runtime policy blocks and instantiates every enabled hook
// through its registered factory.
type Builder interface {
	Build(defs *Definitions) (*Controller, error)
	BuildWithContent(content []byte) (*Controller, error)
	BuildWithFiles(files []string) (*Controller, error)
	BuildWithDir(configDir string) (*Controller, error)

	SetHalter(h Halter)
	SetFinalizer(f Finalizer)
	SetIntrospector(intro ThreadIntrospector)
	SetFunction(name string, f function.Function)
	SetVariable(name string, value any) error
	SetConfigFileSuffix(ext string)
}

type builder struct {
	halter     Halter
	finalizer  Finalizer
	intro      ThreadIntrospector
	functions  map[string]function.Function
	variables  map[string]cty.Value
	fileSuffix string
}

func NewBuilder() Builder {
	b := &builder{
		functions:  make(map[string]function.Function),
		variables:  make(map[string]cty.Value),
		fileSuffix: ".hcl",
	}
	for k, v := range DefaultFunctions {
		b.functions[k] = v
	}
	return b
}

func (bld *builder) Build(defs *Definitions) (*Controller, error) {
	if defs.Logging != cty.NilVal {
		logConf := &logging.Config{}
		if err := EvalObject("logging", logConf, defs.Logging); err != nil {
			return nil, fmt.Errorf("config logging, %s", err.Error())
		}
		logging.Configure(logConf)
	}

	opts := []Option{}
	if bld.halter != nil {
		opts = append(opts, WithHalter(bld.halter))
	}
	if bld.finalizer != nil {
		opts = append(opts, WithFinalizer(bld.finalizer))
	}
	if defs.Policy.Reuse {
		if bld.intro == nil {
			return nil, errors.New("reuse enabled without a thread introspector")
		}
		opts = append(opts, WithReuse(bld.intro))
	}
	c := New(opts...)
	c.SetRunFinalizersOnExit(defs.Policy.RunFinalizersOnExit)

	for _, def := range defs.Hooks {
		state := "enabled"
		if def.Disabled {
			state = "disabled"
		}
		bootlog.Println("hook", def.Id, "slot", def.Slot, state)
		if def.Disabled {
			continue
		}
		fact := getHookFactory(def.Id)
		if fact == nil {
			return nil, fmt.Errorf("hook %s is not found", def.Id)
		}
		config := fact.NewConfig()
		if def.Config != cty.NilVal {
			objName := strings.TrimPrefix(fmt.Sprintf("%T", config), "*")
			if err := EvalObject(objName, config, def.Config); err != nil {
				return nil, fmt.Errorf("config %s, %s", objName, err.Error())
			}
		}
		hook, err := fact.NewHook(config)
		if err != nil {
			return nil, fmt.Errorf("hook %s, %s", def.Id, err.Error())
		}
		if err := c.Register(def.Slot, def.DuringShutdown, hook); err != nil {
			return nil, fmt.Errorf("hook %s, %s", def.Id, err.Error())
		}
	}
	return c, nil
}

func (bld *builder) BuildWithContent(content []byte) (*Controller, error) {
	definitions, err := LoadDefinitions(content, bld.makeContext())
	if err != nil {
		return nil, err
	}
	return bld.Build(definitions)
}

func (bld *builder) BuildWithFiles(files []string) (*Controller, error) {
	definitions, err := LoadDefinitionFiles(files, bld.makeContext())
	if err != nil {
		return nil, err
	}
	return bld.Build(definitions)
}

func (bld *builder) BuildWithDir(configDir string) (*Controller, error) {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("invalid config directory, %s", err.Error())
	}

	files := make([]string, 0)
	for _, file := range entries {
		if !strings.HasSuffix(file.Name(), bld.fileSuffix) {
			continue
		}
		files = append(files, file.Name())
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i] < files[j]
	})
	result := make([]string, 0)
	for _, file := range files {
		result = append(result, filepath.Join(configDir, file))
	}
	return bld.BuildWithFiles(result)
}

func (bld *builder) SetHalter(h Halter) {
	bld.halter = h
}

func (bld *builder) SetFinalizer(f Finalizer) {
	bld.finalizer = f
}

func (bld *builder) SetIntrospector(intro ThreadIntrospector) {
	bld.intro = intro
}

func (bld *builder) makeContext() *hcl.EvalContext {
	evalCtx := &hcl.EvalContext{
		Functions: bld.functions,
		Variables: bld.variables,
	}
	if evalCtx.Functions == nil {
		evalCtx.Functions = make(map[string]function.Function)
	}
	return evalCtx
}

func (bld *builder) SetFunction(name string, f function.Function) {
	bld.functions[name] = f
}

func (bld *builder) SetVariable(name string, value any) (err error) {
	if len(name) == 0 {
		return errors.New("can not define with empty name")
	}
	var v cty.Value
	switch raw := value.(type) {
	case string:
		v, err = gocty.ToCtyValue(raw, cty.String)
	case bool:
		v, err = gocty.ToCtyValue(raw, cty.Bool)
	case int, int32, int64, float32, float64:
		v, err = gocty.ToCtyValue(raw, cty.Number)
	default:
		return fmt.Errorf("can not define %s with value type %T", name, value)
	}

	if err == nil {
		bld.variables[name] = v
	}
	return
}

func (bld *builder) SetConfigFileSuffix(ext string) {
	bld.fileSuffix = ext
}
