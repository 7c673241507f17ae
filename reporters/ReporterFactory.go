package reporters

// CreateReporters always logs outcomes and also publishes over HTTP when a
// report URI is configured.
func CreateReporters(reportURI string) []Reporter {
	reporters := []Reporter{NewLogReporter()}
	if reportURI != "" {
		reporters = append(reporters, NewDefaultHttpReporter(reportURI))
	}
	return reporters
}
