package app

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
	"obscura/internal/shared/observability"
)

const (
	mappingText = "Mapping.txt"
	mappingXML  = "Mapping.xml"
)

// SaveAssemblies writes every project assembly to OutPath under its input
// file name and returns the written paths.
func (o *Obfuscator) SaveAssemblies(ctx context.Context) ([]string, error) {
	if o.proj == nil {
		return nil, errors.New(errors.CodeInternal, "project not loaded")
	}
	ctx, span := observability.Tracer.Start(ctx, "obfuscator.SaveAssemblies")
	defer span.End()

	settings := o.Project.Settings
	outputs := make([]string, 0, len(o.proj.Assemblies()))
	for _, info := range o.proj.Assemblies() {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		out := filepath.Join(settings.OutPath, filepath.Base(info.File()))
		if samePath(out, info.File()) {
			return outputs, errors.AddContext(
				errors.New(errors.CodeIO, "output would overwrite the input assembly"), errors.CtxPath, out)
		}
		opts := metadata.WriteOptions{KeyFile: settings.KeyFile}
		if err := o.deps.Writer.WriteAssembly(info.Definition(), out, opts); err != nil {
			return outputs, errors.AddContext(err, errors.CtxAssembly, info.Name())
		}
		slog.Debug("assembly saved", "assembly", info.Name(), "path", out)
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// SaveMapping writes the mapping report into OutPath, as XML when the
// project sets XmlMapping.
func (o *Obfuscator) SaveMapping() (string, error) {
	settings := o.Project.Settings
	name, dump := mappingText, o.report.DumpMap
	if settings.XmlMapping {
		name, dump = mappingXML, o.report.DumpXML
	}
	path := filepath.Join(settings.OutPath, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeIO, "unable to create mapping file"), errors.CtxPath, path)
	}
	w := bufio.NewWriter(f)
	if err := dump(w); err != nil {
		f.Close()
		return "", errors.AddContext(errors.Wrap(err, errors.CodeIO, "unable to write mapping file"), errors.CtxPath, path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", errors.AddContext(errors.Wrap(err, errors.CodeIO, "unable to write mapping file"), errors.CtxPath, path)
	}
	if err := f.Close(); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeIO, "unable to close mapping file"), errors.CtxPath, path)
	}
	return path, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
