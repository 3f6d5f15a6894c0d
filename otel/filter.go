// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/z5labs/sqslistener/config"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// LogLevelsFromEnv reads OTEL_LOG_LEVELS, a comma separated list of
// logger=level pairs, e.g. "github.com/twmb/franz-go=warn,github.com/z5labs/sqslistener=info".
func LogLevelsFromEnv() config.Reader[map[string]string] {
	return config.Map(
		config.Env("OTEL_LOG_LEVELS"),
		func(ctx context.Context, s string) (map[string]string, error) {
			return parseLogLevels(s)
		},
	)
}

func parseLogLevels(s string) (map[string]string, error) {
	levels := make(map[string]string)
	for pair := range strings.SplitSeq(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, level, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("otel: malformed log level %q", pair)
		}
		levels[strings.TrimSpace(name)] = strings.TrimSpace(level)
	}
	return levels, nil
}

func severityOf(level string) log.Severity {
	switch strings.ToLower(level) {
	case "info":
		return log.SeverityInfo
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	default:
		return log.SeverityDebug
	}
}

// levelFilter drops records below the minimum severity of the longest
// configured logger name prefixing their scope. Unmatched loggers pass.
type levelFilter struct {
	sdklog.Processor

	minimums map[string]log.Severity
	prefixes []string
}

func filterLevels(p sdklog.Processor, levels map[string]string) sdklog.Processor {
	if len(levels) == 0 {
		return p
	}

	minimums := make(map[string]log.Severity, len(levels))
	for name, level := range levels {
		minimums[name] = severityOf(level)
	}

	prefixes := slices.Collect(maps.Keys(minimums))
	slices.SortFunc(prefixes, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	return &levelFilter{
		Processor: p,
		minimums:  minimums,
		prefixes:  prefixes,
	}
}

func (f *levelFilter) OnEmit(ctx context.Context, r *sdklog.Record) error {
	scope := r.InstrumentationScope().Name
	for _, prefix := range f.prefixes {
		if !strings.HasPrefix(scope, prefix) {
			continue
		}
		if r.Severity() < f.minimums[prefix] {
			return nil
		}
		break
	}
	return f.Processor.OnEmit(ctx, r)
}
