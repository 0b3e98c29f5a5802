package version

// Build metadata injected via -ldflags at build time, e.g.
//
//	-ldflags "-X edgeviewer/internal/version.BuildNumber=42 -X edgeviewer/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
    // BuildNumber is a monotonically increasing string set by the build script.
    BuildNumber = "0"
    // GitCommit is the short commit hash if available; may be "unknown".
    GitCommit   = "unknown"
)

// Name is the program name used in logs, HTTP responses and telemetry.
const Name = "edgeviewer"

// String returns a concise version string for logs/CLI.
func String() string {
    if GitCommit == "unknown" || GitCommit == "" {
        return Name + " build " + BuildNumber
    }
    return Name + " build " + BuildNumber + " (" + GitCommit + ")"
}
