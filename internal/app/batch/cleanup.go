package batch

// cleanup removes scratch artifacts after a successful run. Export data
// files stay behind for the import that will consume them. Failures are
// logged only.
func cleanup(op OpType, art Artifacts, log Logger) {
	files := []string{art.Script}
	if art.Stub != "" {
		files = append(files, art.Stub)
	}
	if op != Export {
		files = append(files, art.DataFiles...)
	}
	for _, f := range files {
		removed, err := removeIfExists(f)
		if err != nil {
			log.Warn("cleanup failed", "file", f, "err", err)
			continue
		}
		if removed {
			log.Debug("deleted", "file", f)
		}
	}
}
