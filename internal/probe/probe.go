package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/model"
)

// DefaultTimeout bounds a single probe when none is configured.
const DefaultTimeout = 60 * time.Second

// resultMarker prefixes the line carrying the probe result, so that anything
// a module prints while importing does not corrupt it.
const resultMarker = "@@layerstage-probe@@"

const probeScript = `
import importlib, json, os, sys
req = json.loads(sys.argv[1])
sys.path[:0] = req["paths"]
out = {"loaded": False}
try:
    mod = importlib.import_module(req["module"])
    for name in req["imports"]:
        importlib.import_module(name)
    version = getattr(mod, "__version__", None)
    if not isinstance(version, str):
        version = None
    if version is None:
        try:
            from importlib import metadata
            version = metadata.version(req["dist"])
        except Exception:
            version = None
    location = None
    if getattr(mod, "__path__", None):
        location = os.path.abspath(list(mod.__path__)[0])
    elif getattr(mod, "__file__", None):
        location = os.path.abspath(mod.__file__)
    out = {"loaded": True, "version": version, "location": location}
except ModuleNotFoundError as e:
    out = {"loaded": False, "kind": "not_found", "name": e.name, "message": str(e)}
except ImportError as e:
    out = {"loaded": False, "kind": "import", "name": e.name, "message": str(e)}
except BaseException as e:
    out = {"loaded": False, "kind": "init", "type": type(e).__name__, "message": str(e)}
sys.stdout.write("\n" + "` + resultMarker + `" + json.dumps(out) + "\n")
sys.stdout.flush()
`

const extSuffixScript = `import sysconfig; print(sysconfig.get_config_var("EXT_SUFFIX") or "")`

type probeRequest struct {
	Paths   []string `json:"paths"`
	Module  string   `json:"module"`
	Imports []string `json:"imports"`
	Dist    string   `json:"dist"`
}

type probeOutput struct {
	Loaded   bool    `json:"loaded"`
	Version  *string `json:"version"`
	Location *string `json:"location"`
	Kind     string  `json:"kind"`
	Name     *string `json:"name"`
	Type     string  `json:"type"`
	Message  string  `json:"message"`
}

// Prober imports dependencies through an interpreter subprocess.
type Prober struct {
	Interpreter string
	Runner      Runner
	Timeout     time.Duration
}

// New returns a Prober that runs interpreter as a child process.
func New(interpreter string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{Interpreter: interpreter, Runner: ExecRunner{}, Timeout: timeout}
}

// Probe imports dep using only paths and reports the outcome. It never
// returns an error and never panics.
func (p *Prober) Probe(ctx context.Context, dep model.DependencySpec, paths SearchPaths) (res model.ProbeResult) {
	logger := ctxlog.FromContext(ctx).With("dependency", dep.Name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Probe panicked.", "panic", r)
			res = model.Failed(dep.Name, fmt.Sprintf("probe crashed: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return model.Failed(dep.Name, model.ReasonCancelled)
	}

	imports := dep.Imports
	if imports == nil {
		imports = []string{}
	}
	payload, err := json.Marshal(probeRequest{
		Paths:   paths.List(),
		Module:  dep.ImportName(),
		Imports: imports,
		Dist:    dep.Name,
	})
	if err != nil {
		return model.Failed(dep.Name, fmt.Sprintf("probe crashed: %v", err))
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	logger.Debug("Probing module.", "module", dep.ImportName(), "search_paths", paths.Len())
	started := time.Now()
	stdout, runErr := p.Runner.Run(probeCtx, p.Interpreter, "-I", "-S", "-c", probeScript, string(payload))

	switch {
	case ctx.Err() != nil:
		return model.Failed(dep.Name, model.ReasonCancelled)
	case errors.Is(probeCtx.Err(), context.DeadlineExceeded):
		logger.Warn("Probe timed out.", "elapsed", time.Since(started))
		return model.Failed(dep.Name, fmt.Sprintf("probe timed out after %s", p.timeout()))
	}

	if out, ok := extractResult(stdout); ok {
		return classify(dep, out)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return model.Failed(dep.Name, fmt.Sprintf("initialization error: interpreter exited: %v", runErr))
		}
		return model.Failed(dep.Name, fmt.Sprintf("interpreter unavailable: %v", runErr))
	}
	return model.Failed(dep.Name, "malformed probe output")
}

// DetectExtSuffix asks the interpreter for the filename suffix it expects on
// compiled extension modules, e.g. ".cpython-312-x86_64-linux-gnu.so".
func (p *Prober) DetectExtSuffix(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	out, err := p.Runner.Run(probeCtx, p.Interpreter, "-I", "-S", "-c", extSuffixScript)
	if err != nil {
		return "", fmt.Errorf("query EXT_SUFFIX from %s: %w", p.Interpreter, err)
	}
	suffix := strings.TrimSpace(string(out))
	if suffix == "" {
		return "", fmt.Errorf("interpreter %s reports no EXT_SUFFIX", p.Interpreter)
	}
	return suffix, nil
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func extractResult(stdout []byte) (probeOutput, bool) {
	i := bytes.LastIndex(stdout, []byte(resultMarker))
	if i < 0 {
		return probeOutput{}, false
	}
	line := stdout[i+len(resultMarker):]
	if j := bytes.IndexByte(line, '\n'); j >= 0 {
		line = line[:j]
	}
	var out probeOutput
	if err := json.Unmarshal(line, &out); err != nil {
		return probeOutput{}, false
	}
	return out, true
}

func classify(dep model.DependencySpec, out probeOutput) model.ProbeResult {
	if out.Loaded {
		res := model.ProbeResult{Dependency: dep.Name, Loaded: true, Version: model.UnknownVersion}
		if out.Version != nil && *out.Version != "" {
			res.Version = *out.Version
		}
		if out.Location != nil {
			res.Location = *out.Location
		}
		return res
	}

	switch out.Kind {
	case "not_found":
		name := ""
		if out.Name != nil {
			name = *out.Name
		}
		module := dep.ImportName()
		switch {
		case name == "" || name == module || strings.HasPrefix(module, name+"."):
			return model.Failed(dep.Name, model.ReasonModuleNotFound)
		case isRequestedImport(dep, name):
			return model.Failed(dep.Name, "submodule not found: "+name)
		default:
			return model.Failed(dep.Name, "missing transitive dependency: "+name)
		}
	case "import":
		return model.Failed(dep.Name, "import error: "+out.Message)
	case "init":
		return model.Failed(dep.Name, fmt.Sprintf("initialization error: %s: %s", out.Type, out.Message))
	default:
		return model.Failed(dep.Name, "malformed probe output")
	}
}

func isRequestedImport(dep model.DependencySpec, name string) bool {
	for _, imp := range dep.Imports {
		if imp == name || strings.HasPrefix(imp, name+".") {
			return true
		}
	}
	return false
}
