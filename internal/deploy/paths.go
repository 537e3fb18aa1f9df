// internal/deploy/paths.go

package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hpcq/internal/apperr"
	"hpcq/internal/models"
	"hpcq/internal/utils"
)

// MapPaths lists the *.<jobExt> files directly inside srcDir and maps each one to
// dstRoot/<basename(srcDir)>/<file>. dstRoot is used as given.
func MapPaths(srcDir, dstRoot, jobExt string) (*models.PathMapping, error) {
	abs, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, apperr.Op(apperr.MappingError, "map", fmt.Sprintf("failed to resolve %s", srcDir), err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Op(apperr.MappingError, "map", srcDir, apperr.ErrSourceNotFound)
		}
		return nil, apperr.Op(apperr.MappingError, "map", fmt.Sprintf("failed to stat %s", srcDir), err)
	}
	if !info.IsDir() {
		return nil, apperr.Op(apperr.MappingError, "map", srcDir, apperr.ErrSourceNotDir)
	}

	files, err := listJobFiles(abs, jobExt)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.Op(apperr.MappingError, "map", fmt.Sprintf("no .%s files in %s", jobExt, srcDir), apperr.ErrNoInputFiles)
	}

	mapping := &models.PathMapping{
		SourceDir: abs,
		RemoteDir: utils.JoinRemote(dstRoot, filepath.Base(abs)),
	}
	for _, local := range files {
		rel, err := filepath.Rel(abs, local)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, apperr.Op(apperr.MappingError, "map", local, apperr.ErrNotUnderSource)
		}
		mapping.Entries = append(mapping.Entries, models.FileMapping{
			Local:  local,
			Remote: utils.JoinRemote(mapping.RemoteDir, filepath.ToSlash(rel)),
		})
	}

	log.Debugf("mapped %d files from %s to %s", len(mapping.Entries), abs, mapping.RemoteDir)
	return mapping, nil
}

// listJobFiles returns the regular files in dir with the given extension, sorted by name.
// Symlinks are followed; subdirectories are not entered.
func listJobFiles(dir, jobExt string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Op(apperr.MappingError, "map", fmt.Sprintf("failed to list %s", dir), err)
	}

	suffix := "." + jobExt
	var files []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != suffix {
			continue
		}
		full := filepath.Join(dir, e.Name())
		info, err := os.Stat(full)
		if err != nil {
			log.Debugf("skipping %s: %v", full, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, full)
	}
	return files, nil
}
