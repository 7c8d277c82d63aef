// Package driver is the out-of-core collaborator: it enumerates
// source files, opens/creates the corresponding streams, and invokes
// the Translator once per file. Sibling files share no mutable state,
// so the driver fans them out over a bounded worker pool.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jacktrans/jackc/internal/compiler"
	"github.com/jacktrans/jackc/internal/jackerr"
	"github.com/jacktrans/jackc/internal/lexer"
	"github.com/jacktrans/jackc/internal/vmcode"
)

const sourceExt = ".jack"

// CollectFiles resolves a CLI path argument to the list of source
// files to translate: a regular file is translated as-is; a directory
// contributes every direct (non-recursive) child ending in ".jack";
// anything else is an error.
func CollectFiles(fileOrDir string) ([]string, error) {
	info, err := os.Stat(fileOrDir)
	if err != nil {
		return nil, jackerr.Wrap(jackerr.IoError, 0, err, "cannot stat %q", fileOrDir)
	}

	if info.Mode().IsRegular() {
		return []string{fileOrDir}, nil
	}
	if !info.IsDir() {
		return nil, jackerr.New(jackerr.IoError, 0, "%q is neither a regular file nor a directory", fileOrDir)
	}

	entries, err := os.ReadDir(fileOrDir)
	if err != nil {
		return nil, jackerr.Wrap(jackerr.IoError, 0, err, "cannot read directory %q", fileOrDir)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sourceExt {
			continue
		}
		files = append(files, filepath.Join(fileOrDir, entry.Name()))
	}
	return files, nil
}

// OutputPath replaces a source file's extension with ".vm".
func OutputPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".vm"
}

// TranslateFile opens sourcePath, translates it, and writes the
// result to its derived ".vm" path. Streams are acquired here and
// closed before returning; the output is flushed only when
// translation succeeds.
func TranslateFile(sourcePath string) (outputPath string, err error) {
	in, err := os.Open(sourcePath)
	if err != nil {
		return "", jackerr.Wrap(jackerr.IoError, 0, err, "cannot open %q", sourcePath)
	}
	defer in.Close()

	outputPath = OutputPath(sourcePath)
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return outputPath, jackerr.Wrap(jackerr.IoError, 0, err, "cannot create %q", outputPath)
	}
	defer out.Close()

	lex := lexer.New(in)
	writer := vmcode.New(out)
	comp := compiler.New(lex, writer)

	if err := comp.Compile(); err != nil {
		return outputPath, err
	}
	if err := writer.Flush(); err != nil {
		return outputPath, jackerr.Wrap(jackerr.IoError, 0, err, "cannot flush %q", outputPath)
	}
	return outputPath, nil
}

// Result records the outcome of translating one file.
type Result struct {
	SourcePath string
	OutputPath string
	Err        error
}

// RunAll translates every file in files concurrently, bounded by
// GOMAXPROCS workers; translating one file never depends on another.
// A failing file never prevents sibling files from being attempted:
// each file's error, if any, is reported in its own Result rather
// than aborting the group.
func RunAll(ctx context.Context, files []string, log *logrus.Logger) []Result {
	results := make([]Result, len(files))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			log.WithField("file", path).Info("compiling")
			outputPath, err := TranslateFile(path)
			results[i] = Result{SourcePath: path, OutputPath: outputPath, Err: err}
			if err != nil {
				log.WithField("file", path).WithError(err).Error("translation failed")
			} else {
				log.WithField("file", path).WithField("output", outputPath).Debug("translation succeeded")
			}
			// Never propagate the error through the group: a failing
			// file must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	return results
}
