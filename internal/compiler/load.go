package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wdshin/Concuerror/internal/model"
)

// LoadProgram loads the program in path. Files ending in .cue are compiled
// with CUE; anything else is parsed as YAML. A CUE file declaring several
// programs needs name to pick one; name is ignored for YAML files.
//
// The program is not validated.
func LoadProgram(path, name string) (*model.Program, error) {
	if !strings.EqualFold(filepath.Ext(path), ".cue") {
		return model.Load(path)
	}

	progs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(progs) != 1 {
			return nil, fmt.Errorf("%s declares %d programs; name one of %s", path, len(progs), programNames(progs))
		}
		return progs[0], nil
	}
	for _, p := range progs {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s declares no program %q; have %s", path, name, programNames(progs))
}

func programNames(progs []*model.Program) string {
	names := make([]string, len(progs))
	for i, p := range progs {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
