package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/metrics"
	"github.com/unitimetable/timetable/internal/model"
)

const (
	resourceCourses = "courses"
	resourceLessons = "lessons"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <source> <courses|lessons> [key=value...]",
		Short: "Fetch courses or lessons from a source and print them as JSON",
		Example: `  timetable fetch unicam courses
  timetable fetch unicam lessons course_id=12 course_year=1 weeks=2`,
		Args: cobra.MinimumNArgs(2),
		RunE: runFetch,
	}
	cmd.Flags().Bool("no-cache", false, "Bypass the configured cache backend")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}

	resource := strings.ToLower(args[1])
	if resource != resourceCourses && resource != resourceLessons {
		return fmt.Errorf("unknown resource %q, want %s or %s", args[1], resourceCourses, resourceLessons)
	}
	query, err := parseQueryArgs(args[2:])
	if err != nil {
		return err
	}

	var store cache.Store = cache.NopStore{}
	if !noCache {
		s, closeStore, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()
		store = s
	}

	registry, err := newRegistry(cfg, store, metrics.Nop{}, log)
	if err != nil {
		return err
	}
	src, ok := registry.Lookup(args[0])
	if !ok {
		return fmt.Errorf("no crawler found for source %q", args[0])
	}

	var result any
	if resource == resourceCourses {
		result, err = src.Courses(cmd.Context(), query)
	} else {
		result, err = src.Lessons(cmd.Context(), query)
	}
	if err != nil {
		return describe(err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// parseQueryArgs turns key=value arguments into a query map. Later values
// win over earlier ones.
func parseQueryArgs(args []string) (map[string]string, error) {
	query := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query argument %q, want key=value", arg)
		}
		query[key] = value
	}
	return query, nil
}

// describe keeps the user-facing message and, for faults that are not the
// caller's, the diagnostic detail.
func describe(err error) error {
	e := model.AsError(err)
	if e.Fault == model.FaultUser {
		return fmt.Errorf("%s: %s", e.Title, e.Message)
	}
	return fmt.Errorf("%s (%s): %s: %w", e.Title, e.Fault, e.Message, err)
}
