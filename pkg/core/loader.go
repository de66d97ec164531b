/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: loader.go
Description: Discovery and decoding of compiled module files. Walks a directory for .mv files,
skipping dependency and vendored trees, and decodes each file with the backend decoder.
*/

package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/vm"
)

// ModuleExtension is the file extension of compiled modules
const ModuleExtension = ".mv"

var skippedDirs = map[string]bool{
	"dependencies": true,
	"vendor":       true,
}

// LoadedModule is a decoded module and the bytes it was decoded from
type LoadedModule struct {
	ID     vm.ModuleID
	Module *vm.CompiledModule
	Code   []byte
	Path   string
}

// CollectModuleFiles returns every module file under root in sorted order.
// root may also be a single file.
func CollectModuleFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat module path: %w", err)
	}
	if !info.IsDir() {
		if isDependencyPath(root) || !strings.HasSuffix(root, ModuleExtension) {
			return nil, nil
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ModuleExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk module path: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func isDependencyPath(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if skippedDirs[seg] {
			return true
		}
	}
	return false
}

// LoadModules decodes every module file under root. Unreadable or undecodable files are
// logged and skipped; a module id seen twice keeps its first file.
func LoadModules(root string, decoder vm.Decoder, logger logrus.FieldLogger) ([]LoadedModule, error) {
	files, err := CollectModuleFiles(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[vm.ModuleID]bool)
	var loaded []LoadedModule
	for _, file := range files {
		code, err := os.ReadFile(file)
		if err != nil {
			logger.WithFields(logrus.Fields{"file": file, "error": err}).Warn("Failed to read module")
			continue
		}
		module, err := decoder.Decode(code)
		if err != nil {
			logger.WithFields(logrus.Fields{"file": file, "error": err}).Warn("Failed to deserialize module")
			continue
		}
		if seen[module.ID] {
			logger.WithFields(logrus.Fields{"file": file, "module": module.ID.String()}).Debug("Duplicate module skipped")
			continue
		}
		seen[module.ID] = true
		loaded = append(loaded, LoadedModule{ID: module.ID, Module: module, Code: code, Path: file})
	}
	return loaded, nil
}
