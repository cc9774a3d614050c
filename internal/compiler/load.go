package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/delegation/internal/metadata"
)

// Load builds the CUE value of a catalog. path is either a single .cue
// file or a directory whose .cue files are loaded together as one
// instance. Catalog files need no package clause.
func Load(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: %w", err)
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("read catalog: %w", err)
		}
		v := ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(abs, "*.cue"))
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("catalog: no CUE files in %s", path)
	}
	instances := load.Instances(files, &load.Config{Dir: abs})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("catalog: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("load catalog: %w", inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadCatalog loads, compiles, validates and links the catalog at path.
func LoadCatalog(path string) (*metadata.Catalog, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}
	return CompileCatalog(v)
}
