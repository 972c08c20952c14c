package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kdomanski/iso9660"

	"github.com/gofcom/fcom/core"
)

// UnisoReader extracts every file in the ISO-9660 image at Input.Name
// into Cmd.OutDir. kdomanski/iso9660 is read-only, matching the
// operation's scope (fcom's iso module is also extract-only).
type UnisoReader struct{}

func (r *UnisoReader) Open(c *core.Cmd) (any, error) {
	return struct{}{}, nil
}

func (r *UnisoReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	f, err := os.Open(c.Input.Name)
	if err != nil {
		return core.Err, core.NoMutation, fmt.Errorf("archive: uniso open %s: %w", c.Input.Name, err)
	}
	defer f.Close()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return core.Err, core.NoMutation, fmt.Errorf("archive: uniso parse %s: %w", c.Input.Name, err)
	}

	root, err := img.RootDir()
	if err != nil {
		return core.Err, core.NoMutation, fmt.Errorf("archive: uniso root %s: %w", c.Input.Name, err)
	}

	outDir := c.OutDir
	if outDir == "" {
		outDir = "."
	}

	if err := extractISODir(root, outDir); err != nil {
		return core.SysErr, core.NoMutation, err
	}
	return core.Done, core.NoMutation, nil
}

func extractISODir(dir *iso9660.File, destDir string) error {
	children, err := dir.GetChildren()
	if err != nil {
		return fmt.Errorf("archive: uniso readdir: %w", err)
	}
	for _, child := range children {
		target := filepath.Join(destDir, child.Name())
		if child.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: uniso mkdir %s: %w", target, err)
			}
			if err := extractISODir(child, target); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("archive: uniso mkdir %s: %w", target, err)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("archive: uniso create %s: %w", target, err)
		}
		_, err = io.Copy(out, child.Reader())
		out.Close()
		if err != nil {
			return fmt.Errorf("archive: uniso write %s: %w", target, err)
		}
	}
	return nil
}

func (r *UnisoReader) Close(state any, c *core.Cmd) {}
