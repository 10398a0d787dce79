package config

import (
	"fmt"

	"github.com/a-peyrard/godi-datasource"
	"github.com/a-peyrard/godi-datasource/inject"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

type (
	// HCLSource holds the data sources declared in an HCL file.
	HCLSource struct {
		sources []*hclDataSource
	}

	// hclFile represents the top-level structure of an HCL file for decoding. Blocks other than datasource are
	// left to other readers.
	hclFile struct {
		DataSources []*hclDataSource `hcl:"datasource,block"`
		Remain      hcl.Body         `hcl:",remain"`
	}

	hclDataSource struct {
		Name       string            `hcl:"name,label"`
		JNDIName   *string           `hcl:"jndi_name,optional"`
		Driver     *string           `hcl:"driver,optional"`
		Properties map[string]string `hcl:"properties,optional"`
		PoolMax    *int              `hcl:"pool_max,optional"`
		PoolMin    *int              `hcl:"pool_min,optional"`
	}
)

// LoadHCL parses the datasource blocks of an HCL file.
func LoadHCL(filePath string) (*HCLSource, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}
	return decodeHCL(file, filePath)
}

// ParseHCL parses the datasource blocks of an in-memory HCL document, filename being used in diagnostics only.
func ParseHCL(src []byte, filename string) (*HCLSource, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodeHCL(file, filename)
}

func decodeHCL(file *hcl.File, filename string) (*HCLSource, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	seen := make(map[string]struct{}, len(parsed.DataSources))
	for _, source := range parsed.DataSources {
		if _, err := datasource.DeriveKeys(source.Name); err != nil {
			return nil, fmt.Errorf("invalid datasource block in file %s: %w", filename, err)
		}
		if _, duplicated := seen[source.Name]; duplicated {
			return nil, fmt.Errorf("datasource %q is declared twice in file %s", source.Name, filename)
		}
		seen[source.Name] = struct{}{}
	}

	return &HCLSource{sources: parsed.DataSources}, nil
}

// Names returns the data source names, in declaration order.
func (s *HCLSource) Names() []string {
	names := make([]string, 0, len(s.sources))
	for _, source := range s.sources {
		names = append(names, source.Name)
	}
	return names
}

// Module binds the attributes set in every datasource block as container constants.
//
// A block without properties gets an empty set of properties.
func (s *HCLSource) Module() inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		for _, source := range s.sources {
			keys, err := datasource.DeriveKeys(source.Name)
			if err != nil {
				return err
			}

			properties := datasource.Properties(source.Properties)
			if properties == nil {
				properties = datasource.Properties{}
			}
			constants := map[string]any{keys.Properties: properties}
			if source.JNDIName != nil {
				constants[keys.JNDIName] = *source.JNDIName
			}
			if source.Driver != nil {
				constants[keys.Driver] = *source.Driver
			}
			if source.PoolMax != nil {
				constants[keys.PoolMax] = *source.PoolMax
			}
			if source.PoolMin != nil {
				constants[keys.PoolMin] = *source.PoolMin
			}

			for _, key := range keys.All() {
				val, found := constants[key]
				if !found {
					continue
				}
				if err := b.BindConstant(key, val); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
