package ops

import (
	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/archive"
	"github.com/gofcom/fcom/filters/fsio"
	"github.com/gofcom/fcom/registry"
)

// singleStreamTemplate wires a chunked compress/decompress codec between
// a FileReader and a FileWriter — the shape shared by gz/ungz, xz/unxz,
// and zst/unzst.
func singleStreamTemplate(name, help string, codec func() core.Filter) *core.PipelineTemplate {
	return &core.PipelineTemplate{
		Name: name,
		Help: help,
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("archive."+name, codec())
			p.Append("fsio.write", &fsio.FileWriter{})
			return p, nil
		},
	}
}

// containerReaderTemplate wires a self-contained multi-file archive
// extractor (uniso/un7z) that writes directly to Cmd.OutDir. These two
// formats extract through a single synchronous Process call rather than
// the chunked Cmd.In/Out + NextDone contract zip/tar use below — see
// DESIGN.md for why (read-only tree-walking / reduced-scope-parser
// libraries that don't expose an incremental per-member read API).
func containerReaderTemplate(name, help string, reader func() core.Filter) *core.PipelineTemplate {
	return &core.PipelineTemplate{
		Name: name,
		Help: help,
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("archive."+name, reader())
			return p, nil
		},
	}
}

// chunkedContainerWriterTemplate wires an entry-reader/archive-writer
// pair that streams each member's bytes through Cmd.In/Out, member by
// member, terminated by NextDone — the incremental archive-writer
// contract spec §4.3/§4.6 centers on (zip, tar).
func chunkedContainerWriterTemplate(name, help string, entryReader, writer func() core.Filter) *core.PipelineTemplate {
	return &core.PipelineTemplate{
		Name: name,
		Help: help,
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("archive."+name+".entries", entryReader())
			p.Append("archive."+name, writer())
			return p, nil
		},
	}
}

// chunkedContainerReaderTemplate wires an archive-reader/member-writer
// pair that streams each member's bytes through Cmd.In/Out, member by
// member, terminated by NextDone — the incremental archive-reader
// contract spec §4.3/§4.6 centers on (unzip, untar).
func chunkedContainerReaderTemplate(name, help string, reader func() core.Filter) *core.PipelineTemplate {
	return &core.PipelineTemplate{
		Name: name,
		Help: help,
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("archive."+name, reader())
			p.Append("archive."+name+".write", &archive.MemberWriter{})
			return p, nil
		},
	}
}

// ArchiveModule builds the "arc" module: gz/ungz, zip/unzip, tar/untar,
// xz/unxz, zst/unzst, uniso, un7z — the pack/unpack operations from
// spec §4.3, wired onto the per-format codec filters.
func ArchiveModule() (*registry.Module, error) {
	m := registry.NewModule("arc")

	m.Add("gz", singleStreamTemplate("gz", "compresses a file with gzip", func() core.Filter { return &archive.GzipWriter{} }))
	m.Add("ungz", singleStreamTemplate("ungz", "decompresses a gzip file", func() core.Filter { return &archive.GunzipReader{} }))
	m.Add("xz", singleStreamTemplate("xz", "compresses a file with xz", func() core.Filter { return &archive.XzWriter{} }))
	m.Add("unxz", singleStreamTemplate("unxz", "decompresses an xz file", func() core.Filter { return &archive.UnxzReader{} }))
	m.Add("zst", singleStreamTemplate("zst", "compresses a file with zstd", func() core.Filter { return &archive.ZstWriter{} }))
	m.Add("unzst", singleStreamTemplate("unzst", "decompresses a zstd file", func() core.Filter { return &archive.UnzstReader{} }))

	m.Add("zip", chunkedContainerWriterTemplate("zip", "packs files into a zip archive (Cmd.Vars[\"zip.entries\"])",
		func() core.Filter { return &archive.ZipEntryReader{} }, func() core.Filter { return &archive.ZipWriter{} }))
	m.Add("unzip", chunkedContainerReaderTemplate("unzip", "extracts a zip archive into Cmd.OutDir", func() core.Filter { return &archive.UnzipReader{} }))
	m.Add("tar", chunkedContainerWriterTemplate("tar", "packs files into a tar archive (Cmd.Vars[\"tar.entries\"])",
		func() core.Filter { return &archive.TarEntryReader{} }, func() core.Filter { return &archive.TarWriter{} }))
	m.Add("untar", chunkedContainerReaderTemplate("untar", "extracts a tar archive into Cmd.OutDir", func() core.Filter { return &archive.UntarReader{} }))
	m.Add("uniso", containerReaderTemplate("uniso", "extracts an ISO-9660 image into Cmd.OutDir", func() core.Filter { return &archive.UnisoReader{} }))
	m.Add("un7z", containerReaderTemplate("un7z", "extracts a 7z archive into Cmd.OutDir", func() core.Filter { return &archive.Un7zReader{} }))

	return m, nil
}
