// Package process describes the process behind a PID using /proc.
package process

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
)

// Info describes a running process
type Info struct {
	PID        int      `json:"pid"`
	Comm       string   `json:"comm"`
	Executable string   `json:"executable,omitempty"`
	Cmdline    []string `json:"cmdline,omitempty"`
}

// Name returns the most readable name available for the process.
func (i Info) Name() string {
	if i.Comm != "" {
		return i.Comm
	}
	if len(i.Cmdline) > 0 {
		return i.Cmdline[0]
	}
	return fmt.Sprintf("pid %d", i.PID)
}

// String is used by the watch command's text output.
func (i Info) String() string {
	if len(i.Cmdline) == 0 {
		return i.Name()
	}
	return fmt.Sprintf("%s (%s)", i.Name(), strings.Join(i.Cmdline, " "))
}

// Resolver looks processes up in one procfs mount
type Resolver struct {
	fs procfs.FS
}

// NewResolver opens procfs at mountPoint ("" means /proc).
func NewResolver(mountPoint string) (*Resolver, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", mountPoint, err)
	}
	return &Resolver{fs: fs}, nil
}

// Lookup returns what /proc knows about pid. Only a missing process is an
// error; unreadable fields are left empty.
func (r *Resolver) Lookup(pid int) (Info, error) {
	p, err := r.fs.Proc(pid)
	if err != nil {
		return Info{}, fmt.Errorf("process %d: %w", pid, err)
	}

	info := Info{PID: pid}
	if comm, err := p.Comm(); err == nil {
		info.Comm = comm
	}
	// exe is unreadable for other users' processes
	if exe, err := p.Executable(); err == nil {
		info.Executable = exe
	}
	if cmdline, err := p.CmdLine(); err == nil {
		info.Cmdline = cmdline
	}
	return info, nil
}
