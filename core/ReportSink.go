package core

// InfoTypeDependency is the info type used for dependency-info entries.
const InfoTypeDependency = "dependency"

// DependencyFileKey holds the manifest path inside a dependency-info entry.
const DependencyFileKey = "dependency_file"

// ReportSink records everything scanners publish. Implementations must be
// safe for concurrent use by several scanners.
type ReportSink interface {
	ScanPassed(scannerName string, passed bool)
	ScanInfo(scannerName string, infoType string, message any)
	ScanStdout(scannerName string, stdout string)
	ScanStderr(scannerName string, stderr string)
	SalusError(scannerName string, errorData map[string]any)
	HasFailure(scannerName string) bool
}
