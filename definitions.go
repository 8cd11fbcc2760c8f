package rundown

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// HookDefinition binds a registered hook factory to a slot.
type HookDefinition struct {
	Id             string
	Name           string
	Slot           int
	DuringShutdown bool
	Disabled       bool
	Config         cty.Value
}

// Policy carries the process-wide shutdown toggles.
type Policy struct {
	RunFinalizersOnExit bool
	Reuse               bool
}

// Definitions is the parsed form of a host configuration.
type Definitions struct {
	Hooks   []*HookDefinition
	Policy  Policy
	Logging cty.Value
}

func LoadDefinitionFiles(files []string, evalCtx *hcl.EvalContext) (*Definitions, error) {
	body, err := LoadFile(files...)
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(body, evalCtx)
}

func LoadDefinitions(content []byte, evalCtx *hcl.EvalContext) (*Definitions, error) {
	body, err := Load(content)
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(body, evalCtx)
}

func ParseDefinitions(body hcl.Body, evalCtx *hcl.EvalContext) (*Definitions, error) {
	if evalCtx == nil {
		evalCtx = &hcl.EvalContext{
			Functions: DefaultFunctions,
			Variables: make(map[string]cty.Value),
		}
	} else if evalCtx.Functions == nil {
		evalCtx.Functions = make(map[string]function.Function)
	} else if evalCtx.Variables == nil {
		evalCtx.Variables = make(map[string]cty.Value)
	}

	rootSchema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "define", LabelNames: []string{"id"}},
			{Type: "runtime"},
			{Type: "logging"},
			{Type: "hook", LabelNames: []string{"id"}},
		},
	}
	content, diag := body.Content(rootSchema)
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}

	defines := make([]*hcl.Block, 0)
	runtimes := make([]*hcl.Block, 0)
	loggings := make([]*hcl.Block, 0)
	hooks := make([]*hcl.Block, 0)

	for _, block := range content.Blocks {
		switch block.Type {
		case "define":
			defines = append(defines, block)
		case "runtime":
			runtimes = append(runtimes, block)
		case "logging":
			loggings = append(loggings, block)
		case "hook":
			hooks = append(hooks, block)
		}
	}

	for _, d := range defines {
		id := d.Labels[0]
		sb := d.Body.(*hclsyntax.Body)
		for _, attr := range sb.Attributes {
			name := fmt.Sprintf("%s_%s", id, attr.Name)
			value, diag := attr.Expr.Value(evalCtx)
			if diag.HasErrors() {
				return nil, errors.New(diag.Error())
			}
			evalCtx.Variables[name] = value
		}
	}

	result := &Definitions{Logging: cty.NilVal}

	runtimeSchema := &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "run_finalizers_on_exit", Required: false},
			{Name: "reuse", Required: false},
		},
	}
	for _, r := range runtimes {
		content, diag := r.Body.Content(runtimeSchema)
		if diag.HasErrors() {
			return nil, errors.New(diag.Error())
		}
		for _, attr := range content.Attributes {
			value, diag := attr.Expr.Value(evalCtx)
			if diag.HasErrors() {
				return nil, errors.New(diag.Error())
			}
			switch attr.Name {
			case "run_finalizers_on_exit":
				if v, err := BoolFromCty(value); err != nil {
					return nil, err
				} else {
					result.Policy.RunFinalizersOnExit = v
				}
			case "reuse":
				if v, err := BoolFromCty(value); err != nil {
					return nil, err
				} else {
					result.Policy.Reuse = v
				}
			}
		}
	}

	for _, l := range loggings {
		obj, err := ObjectValFromBody(l.Body.(*hclsyntax.Body), evalCtx)
		if err != nil {
			return nil, err
		}
		result.Logging = obj
	}

	hookSchema := &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "slot", Required: true},
			{Name: "during_shutdown", Required: false},
			{Name: "disabled", Required: false},
			{Name: "name", Required: false},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "config", LabelNames: []string{}},
		},
	}
	for _, h := range hooks {
		hookId := h.Labels[0]
		hookDef := &HookDefinition{
			Id:   hookId,
			Name: hookId,
			Slot: -1,
		}
		content, diag := h.Body.Content(hookSchema)
		if diag.HasErrors() {
			return nil, errors.New(diag.Error())
		}
		for _, attr := range content.Attributes {
			value, diag := attr.Expr.Value(evalCtx)
			if diag.HasErrors() {
				return nil, errors.New(diag.Error())
			}
			switch attr.Name {
			case "slot":
				if v, err := IntFromCty(value); err != nil {
					return nil, err
				} else {
					hookDef.Slot = v
				}
			case "during_shutdown":
				hookDef.DuringShutdown, _ = BoolFromCty(value)
			case "disabled":
				hookDef.Disabled, _ = BoolFromCty(value)
			case "name":
				hookDef.Name = StringFromCty(value)
			}
		}
		if hookDef.Slot < 0 || hookDef.Slot >= MaxHooks {
			return nil, fmt.Errorf("hook %s slot %d out of range [0,%d)", hookId, hookDef.Slot, MaxHooks)
		}
		for _, c := range content.Blocks {
			obj, err := ObjectValFromBody(c.Body.(*hclsyntax.Body), evalCtx)
			if err != nil {
				return nil, err
			}
			hookDef.Config = obj
		}
		result.Hooks = append(result.Hooks, hookDef)
	}
	sort.Slice(result.Hooks, func(i, j int) bool {
		return result.Hooks[i].Slot < result.Hooks[j].Slot
	})

	return result, nil
}

func LoadFile(files ...string) (hcl.Body, error) {
	hclFiles := make([]*hcl.File, 0)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		hclFile, hclDiag := hclsyntax.ParseConfig(content, file, hcl.Pos{Line: 1})
		if hclDiag.HasErrors() {
			return nil, errors.New(hclDiag.Error())
		}
		hclFiles = append(hclFiles, hclFile)
	}
	return hcl.MergeFiles(hclFiles), nil
}

func Load(content []byte) (hcl.Body, error) {
	hclFile, hclDiag := hclsyntax.ParseConfig(content, "nofile.hcl", hcl.Pos{Line: 1})
	if hclDiag.HasErrors() {
		return nil, errors.New(hclDiag.Error())
	}
	return hclFile.Body, nil
}

func ObjectValFromBody(body *hclsyntax.Body, evalCtx *hcl.EvalContext) (cty.Value, error) {
	rt := make(map[string]cty.Value)
	for _, attr := range body.Attributes {
		value, diag := attr.Expr.Value(evalCtx)
		if diag.HasErrors() {
			return cty.NilVal, errors.New(diag.Error())
		}
		rt[attr.Name] = value
	}
	for _, block := range body.Blocks {
		bval, err := ObjectValFromBody(block.Body, evalCtx)
		if err != nil {
			return cty.NilVal, err
		}
		rt[block.Type] = bval
	}
	return cty.ObjectVal(rt), nil
}
