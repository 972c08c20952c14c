package registry

// StandardAliases returns the bare-name shortcuts the command line accepts
// in place of a fully dotted "module.op" name, matching the original
// module table's alias list (un7z, ungz, uniso, untar, unxz, unzip, unzst
// all resolve to their archive module's unpack operation).
func StandardAliases() map[string]string {
	return map[string]string{
		"un7z":  "arc.un7z",
		"ungz":  "arc.ungz",
		"uniso": "arc.uniso",
		"untar": "arc.untar",
		"unxz":  "arc.unxz",
		"unzip": "arc.unzip",
		"unzst": "arc.unzst",
	}
}

// RegisterStandardAliases installs StandardAliases into r.
func RegisterStandardAliases(r *Registry) {
	for alias, target := range StandardAliases() {
		r.Alias(alias, target)
	}
}
