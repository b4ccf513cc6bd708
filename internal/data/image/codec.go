// Package image stores assemblies as TOML documents. It is the default
// metadata.Reader and metadata.Writer used by the command line tool.
package image

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
)

// Extension is probed when resolving dependencies by assembly name.
const Extension = ".asm.toml"

type Codec struct{}

var (
	_ metadata.Reader = Codec{}
	_ metadata.Writer = Codec{}
)

func (Codec) Extensions() []string {
	return []string{Extension}
}

func (Codec) ReadAssembly(path string) (*metadata.Assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "open assembly"), errors.CtxPath, path)
	}
	defer f.Close()

	asm, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	asm.Path = path
	slog.Debug("assembly image loaded", "assembly", asm.Name, "path", path, "modules", len(asm.Modules))
	return asm, nil
}

// WriteAssembly writes asm to path. With a key file the output is marked as
// signed; an unreadable key file fails before anything is written.
func (Codec) WriteAssembly(asm *metadata.Assembly, path string, opts metadata.WriteOptions) error {
	if opts.KeyFile != "" {
		if _, err := os.ReadFile(opts.KeyFile); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "read key file"), "key_file", opts.KeyFile)
		}
		asm.Signed = true
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "create output directory"), errors.CtxPath, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "create assembly"), errors.CtxPath, path)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, asm); err != nil {
		f.Close()
		return errors.AddContext(err, errors.CtxPath, path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write assembly"), errors.CtxPath, path)
	}
	if err := f.Close(); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "close assembly"), errors.CtxPath, path)
	}
	slog.Debug("assembly image written", "assembly", asm.Name, "path", path, "signed", asm.Signed)
	return nil
}
