package ops

import "github.com/gofcom/fcom/registry"

// Register installs every fcom operation module into r, plus the bare-
// name aliases the command line accepts in place of a dotted
// "module.op" name (spec §6: "fcom <op> [args]" where op may be a
// module-qualified or bare name).
func Register(r *registry.Registry) {
	r.RegisterModule("arc", ArchiveModule)
	r.RegisterModule("crypto", CryptoModule)
	r.RegisterModule("text", TextModule)
	r.RegisterModule("image", ImageModule)
	r.RegisterModule("fs", FSModule)
	r.RegisterModule("sync", SyncModule)

	registry.RegisterStandardAliases(r)

	for alias, target := range map[string]string{
		"gz":            "arc.gz",
		"zip":           "arc.zip",
		"tar":           "arc.tar",
		"xz":            "arc.xz",
		"zst":           "arc.zst",
		"md5":           "crypto.md5",
		"sha256":        "crypto.sha256",
		"crc32":         "crypto.crc32",
		"hex":           "crypto.hex",
		"encrypt":       "crypto.encrypt",
		"decrypt":       "crypto.decrypt",
		"encryptverify": "crypto.encryptverify",
		"utf8":          "text.utf8",
		"html":          "text.html",
		"stats":         "text.stats",
		"convert":       "image.convert",
		"crop":          "image.crop",
		"list":          "fs.list",
		"touch":         "fs.touch",
		"sync":          "sync.compare",
	} {
		r.Alias(alias, target)
	}
}
