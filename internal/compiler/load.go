package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/moa/internal/ir"
)

// ErrNoCatalogFiles is returned when a directory holds no catalog source.
var ErrNoCatalogFiles = errors.New("no catalog files found")

// Source formats recognised by LoadDir, by file extension.
const (
	FormatCUE  = "cue"
	FormatYAML = "yaml"
	FormatHCL  = "hcl"
)

// FormatOf returns the source format of a file name, or "" if unsupported.
func FormatOf(path string) string {
	switch filepath.Ext(path) {
	case ".cue":
		return FormatCUE
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return ""
	}
}

// FindCatalogFiles returns the catalog sources directly inside dir, sorted
// by name.
func FindCatalogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || FormatOf(e.Name()) == "" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir compiles every catalog source in dir into one normalized Catalog.
//
// All *.cue files form one CUE instance and are unified; YAML and HCL files
// are compiled one by one in file-name order. The mappings are then
// concatenated: CUE first, then the remaining files in order. Duplicate
// names across files are left for Validate and Build to report.
func LoadDir(dir string) (*ir.Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCatalogFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCatalogFiles, dir)
	}

	out := &ir.Catalog{}
	hasCUE := false
	for _, f := range files {
		if FormatOf(f) == FormatCUE {
			hasCUE = true
			break
		}
	}
	if hasCUE {
		cat, err := loadCUE(dir)
		if err != nil {
			return nil, err
		}
		out.Merge(cat)
	}

	for _, f := range files {
		format := FormatOf(f)
		if format == FormatCUE {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		var cat *ir.Catalog
		switch format {
		case FormatYAML:
			cat, err = CompileYAML(data, f)
		case FormatHCL:
			cat, err = CompileHCL(data, f)
		}
		if err != nil {
			return nil, err
		}
		out.Merge(cat)
	}

	if err := out.Normalize(); err != nil {
		return nil, fmt.Errorf("normalize names: %w", err)
	}
	return out, nil
}

// loadCUE builds the CUE instance in dir and compiles it.
func loadCUE(dir string) (*ir.Catalog, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCatalog(value)
}
