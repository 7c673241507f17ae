package processors

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

type TerraformBlock struct {
	Type       string
	Labels     []string
	Attributes map[string]any
	Blocks     []*TerraformBlock
}

// TerraformBlockProcessor turns one top level block into dependencies.
type TerraformBlockProcessor interface {
	Process(block *TerraformBlock) []Dependency
}

// ModuleBlockProcessor reports the source of every module call.
type ModuleBlockProcessor struct{}

func (ModuleBlockProcessor) Process(block *TerraformBlock) []Dependency {
	if block.Type != "module" || len(block.Labels) == 0 {
		return nil
	}
	source, _ := block.Attributes["source"].(string)
	if source == "" {
		return nil
	}
	version, _ := block.Attributes["version"].(string)
	return []Dependency{{
		Name:      source,
		Version:   version,
		Ecosystem: EcosystemTerraform,
		Kind:      "module",
		Extra:     map[string]any{"module": block.Labels[0]},
	}}
}

// RequiredProvidersProcessor reports terraform { required_providers { ... } }
// entries in both the object and the legacy string form.
type RequiredProvidersProcessor struct{}

func (RequiredProvidersProcessor) Process(block *TerraformBlock) []Dependency {
	if block.Type != "terraform" {
		return nil
	}
	var deps []Dependency
	for _, nested := range block.Blocks {
		if nested.Type != "required_providers" {
			continue
		}
		names := make([]string, 0, len(nested.Attributes))
		for name := range nested.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			dep := Dependency{Name: name, Ecosystem: EcosystemTerraform, Kind: "provider"}
			switch v := nested.Attributes[name].(type) {
			case string:
				dep.Version = v
			case map[string]any:
				dep.Version, _ = v["version"].(string)
				if source, ok := v["source"].(string); ok && source != "" {
					dep.Name = source
				}
			}
			deps = append(deps, dep)
		}
	}
	return deps
}

type TerraformProcessor struct {
	processors []TerraformBlockProcessor
}

func NewTerraformProcessor() *TerraformProcessor {
	return &TerraformProcessor{processors: []TerraformBlockProcessor{
		ModuleBlockProcessor{},
		RequiredProvidersProcessor{},
	}}
}

func (t TerraformProcessor) Supports(filePath string) bool {
	return strings.HasSuffix(filePath, ".tf")
}

func (t TerraformProcessor) Process(path string, content []byte) ([]Dependency, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse terraform '%s': %s", path, diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to get body of '%s'", path)
	}

	var deps []Dependency
	for _, block := range DecodeBlocks(body, content) {
		for _, processor := range t.processors {
			deps = append(deps, processor.Process(block)...)
		}
	}
	return deps, nil
}

// DecodeBlocks flattens an HCL body into TerraformBlocks. Attributes that cannot
// be evaluated without variables keep their source text.
func DecodeBlocks(body *hclsyntax.Body, src []byte) []*TerraformBlock {
	var blocks []*TerraformBlock
	for _, block := range body.Blocks {
		decoded := &TerraformBlock{
			Type:       block.Type,
			Labels:     block.Labels,
			Attributes: make(map[string]any),
		}
		for name, attr := range block.Body.Attributes {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				rng := attr.Expr.Range()
				decoded.Attributes[name] = string(src[rng.Start.Byte:rng.End.Byte])
				continue
			}
			decoded.Attributes[name] = CtyToGo(val)
		}
		decoded.Blocks = DecodeBlocks(block.Body, src)
		blocks = append(blocks, decoded)
	}
	return blocks
}

func CtyToGo(val cty.Value) any {
	if !val.IsKnown() || val.IsNull() {
		return nil
	}

	switch {
	case val.Type().Equals(cty.String):
		return val.AsString()
	case val.Type().Equals(cty.Bool):
		return val.True()
	case val.Type().Equals(cty.Number):
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case val.Type().IsListType() || val.Type().IsTupleType() || val.Type().IsSetType():
		var list []any
		for _, elem := range val.AsValueSlice() {
			list = append(list, CtyToGo(elem))
		}
		return list
	case val.Type().IsMapType() || val.Type().IsObjectType():
		m := make(map[string]any)
		for key, v := range val.AsValueMap() {
			m[key] = CtyToGo(v)
		}
		return m
	default:
		return val.GoString()
	}
}
