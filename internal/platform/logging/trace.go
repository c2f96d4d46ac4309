package logging

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

const (
	traceparentHeader = "traceparent"
	cloudTraceHeader  = "X-Cloud-Trace-Context"
)

var (
	// W3C Trace Context: {version}-{trace-id}-{parent-id}-{trace-flags}
	traceparentRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)
	// Legacy Google header: TRACE_ID/SPAN_ID;o=OPTIONS
	cloudTraceRe = regexp.MustCompile(`^([0-9a-fA-F]+)/([0-9]+)(?:;o=([01]))?$`)
)

var (
	projectIDOnce   sync.Once
	cachedProjectID string
)

type traceContext struct {
	traceID string
	spanID  string
	sampled bool
}

// parseTrace reads traceparent first and falls back to X-Cloud-Trace-Context.
func parseTrace(h http.Header) (traceContext, bool) {
	if m := traceparentRe.FindStringSubmatch(h.Get(traceparentHeader)); m != nil {
		return traceContext{traceID: m[2], spanID: m[3], sampled: m[4] == "01"}, true
	}
	if m := cloudTraceRe.FindStringSubmatch(h.Get(cloudTraceHeader)); m != nil {
		return traceContext{traceID: m[1], spanID: m[2], sampled: m[3] == "1"}, true
	}
	return traceContext{}, false
}

func (tc traceContext) resource(projectID string) string {
	return fmt.Sprintf("projects/%s/traces/%s", projectID, tc.traceID)
}

func (tc traceContext) fields(projectID string) []zap.Field {
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", tc.resource(projectID)),
		zap.String("logging.googleapis.com/spanId", tc.spanID),
		zap.Bool("logging.googleapis.com/trace_sampled", tc.sampled),
	}
}

func resolveProjectID() string {
	projectIDOnce.Do(func() {
		for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT", "PROJECT_ID"} {
			if v := os.Getenv(key); v != "" {
				cachedProjectID = v
				return
			}
		}
	})
	return cachedProjectID
}
