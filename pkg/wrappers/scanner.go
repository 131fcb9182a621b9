package wrappers

import (
	"context"

	"github.com/user/dockscan/pkg/checks/compose"
	"github.com/user/dockscan/pkg/checks/dockerfile"
	"github.com/user/dockscan/pkg/checks/runtime"
	"github.com/user/dockscan/pkg/engine"
	"github.com/user/dockscan/pkg/logger"
)

// Scanner runs the checks of one surface against its input.
type Scanner interface {
	Name() string
	Surface() engine.Surface
	// Load reads the input. It runs for every scanner before any Scan.
	Load(ctx context.Context) error
	Scan(ctx context.Context, ref *engine.Reference) []engine.Finding
}

// DockerfileScanner implements Scanner for a Dockerfile on disk.
type DockerfileScanner struct {
	Path  string
	lines []string
}

func (s *DockerfileScanner) Name() string {
	return "Dockerfile " + s.Path
}

func (s *DockerfileScanner) Surface() engine.Surface {
	return engine.SurfaceDockerfile
}

func (s *DockerfileScanner) Load(ctx context.Context) error {
	lines, err := LoadDockerfile(s.Path)
	if err != nil {
		return err
	}
	s.lines = lines
	return nil
}

func (s *DockerfileScanner) Scan(ctx context.Context, ref *engine.Reference) []engine.Finding {
	return dockerfile.Scan(s.lines, ref)
}

// ComposeScanner implements Scanner for a Compose file on disk.
type ComposeScanner struct {
	Path     string
	manifest *compose.Manifest
}

func (s *ComposeScanner) Name() string {
	return "Compose file " + s.Path
}

func (s *ComposeScanner) Surface() engine.Surface {
	return engine.SurfaceCompose
}

func (s *ComposeScanner) Load(ctx context.Context) error {
	m, err := LoadCompose(s.Path)
	if err != nil {
		return err
	}
	s.manifest = m
	return nil
}

func (s *ComposeScanner) Scan(ctx context.Context, ref *engine.Reference) []engine.Finding {
	return compose.Scan(s.manifest, ref)
}

// RuntimeScanner implements Scanner for the containers of a Docker Engine.
// Connection failures surface as findings, so Load never fails.
type RuntimeScanner struct {
	Source runtime.ContainerSource
}

func (s *RuntimeScanner) Name() string {
	return "Docker runtime"
}

func (s *RuntimeScanner) Surface() engine.Surface {
	return engine.SurfaceRuntime
}

func (s *RuntimeScanner) Load(ctx context.Context) error {
	return nil
}

func (s *RuntimeScanner) Scan(ctx context.Context, ref *engine.Reference) []engine.Finding {
	return runtime.ScanSource(ctx, s.Source, ref)
}

// ScanAll loads every input, then scans them in the given order and
// collects the results into one report. A load error aborts before any
// check runs.
func ScanAll(ctx context.Context, scanners []Scanner, ref *engine.Reference, progress func(string)) (*engine.Report, error) {
	for _, s := range scanners {
		logger.Debugf("loading %s", s.Name())
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	}

	report := engine.NewReport()
	for _, s := range scanners {
		if progress != nil {
			progress("Scanning " + s.Name())
		}
		findings := s.Scan(ctx, ref)
		logger.Debugf("%s: %d findings", s.Name(), len(findings))
		report.AddFindings(s.Surface(), findings)
	}
	return report, nil
}

// Catalog returns the metadata of every built-in rule.
func Catalog() *engine.Catalog {
	c := engine.NewCatalog()
	// IDs are unique per surface by construction
	_ = c.Register(engine.Describe(engine.SurfaceDockerfile, dockerfile.Rules)...)
	_ = c.Register(engine.Describe(engine.SurfaceCompose, compose.Rules)...)
	_ = c.Register(engine.Describe(engine.SurfaceRuntime, runtime.Rules)...)
	return c
}
