package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// fakeRunner imitates the external tools on the filesystem so that the
// dispatcher can be exercised without any of them installed
type fakeRunner struct {
	mu       sync.Mutex
	commands []runner.Command

	// failures makes a tool exit non-zero after doing its work
	failures map[string]int
	// missing makes a tool unavailable
	missing map[string]bool
	// delay keeps dump tools busy, honoring cancellation
	delay time.Duration

	running atomic.Int32
	peak    atomic.Int32
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{failures: map[string]int{}, missing: map[string]bool{}}
}

func (f *fakeRunner) Run(ctx context.Context, cmd runner.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if f.missing[cmd.Name] {
		return &dumperr.ExternalToolError{Tool: cmd.Name, Args: cmd.RedactedArgs(), ExitCode: -1, Err: dumperr.ErrToolNotFound}
	}

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 && isDumpTool(cmd.Name) {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &dumperr.ExternalToolError{Tool: cmd.Name, ExitCode: -1, Err: ctx.Err()}
		}
	}

	if err := f.simulate(cmd); err != nil {
		return err
	}

	if code, ok := f.failures[cmd.Name]; ok {
		return &dumperr.ExternalToolError{Tool: cmd.Name, Args: cmd.RedactedArgs(), ExitCode: code, Stderr: "simulated failure"}
	}
	return nil
}

func isDumpTool(name string) bool {
	return name == "mysqldump" || name == "mongodump" || name == "pg_dump"
}

func (f *fakeRunner) simulate(cmd runner.Command) error {
	args := cmd.Args
	switch cmd.Name {
	case "mysqldump":
		_, err := io.WriteString(cmd.Stdout, "-- dump of "+args[len(args)-1]+"\nhttp://class.example.com/\n")
		return err
	case "mongodump":
		out := args[len(args)-1]
		if err := os.MkdirAll(filepath.Join(out, "db"), 0755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(out, "db", "c.bson"), []byte("bson"), 0644)
	case "sed":
		path := args[len(args)-1]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// only understands s/from/to/g with literal strings
		parts := strings.Split(args[2], "/")
		return os.WriteFile(path, []byte(strings.ReplaceAll(string(data), parts[1], parts[2])), 0644)
	case "tar":
		// tar -czf <out> -C <dir> <base>
		if _, err := os.Stat(filepath.Join(args[3], args[4])); err != nil {
			return err
		}
		return os.WriteFile(args[1], []byte("tarball of "+args[4]), 0644)
	case "gzip":
		path := args[len(args)-1]
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() {
					return err
				}
				return os.Rename(p, p+".gz")
			})
		}
		return os.Rename(path, path+".gz")
	}
	return fmt.Errorf("fake runner does not know %s", cmd.Name)
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.commands {
		names = append(names, c.Name)
	}
	return names
}

func (f *fakeRunner) command(name string) (runner.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if c.Name == name {
			return c, true
		}
	}
	return runner.Command{}, false
}
