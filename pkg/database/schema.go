package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/pkg/config"
)

// Capabilities records which optional tables may be used for the lifetime of the process.
// Reads against a disabled capability degrade to empty results instead of failing.
type Capabilities struct {
	Classwork     bool
	Submissions   bool
	Gradebook     bool
	Instructors   bool
	Notifications bool
	AcademicYears bool
}

// AllCapabilities enables everything; used by tests and when probing is disabled.
func AllCapabilities() Capabilities {
	return Capabilities{Classwork: true, Submissions: true, Gradebook: true, Instructors: true, Notifications: true, AcademicYears: true}
}

var probedTables = []string{
	"classwork_items",
	"classwork_submissions",
	"gradebook_config",
	"class_instructors",
	"notifications",
	"academic_years",
}

// ProbeSchema resolves capabilities once at startup: a capability is on when its feature
// flag is set and, if probing is enabled, its table exists in the public schema.
func ProbeSchema(ctx context.Context, db *sqlx.DB, features config.FeatureConfig, logger *zap.Logger) (Capabilities, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	caps := Capabilities{
		Classwork:     features.Classwork,
		Submissions:   features.Submissions,
		Gradebook:     features.Gradebook,
		Instructors:   features.Instructors,
		Notifications: features.Notifications,
		AcademicYears: features.AcademicYears,
	}
	if !features.SchemaProbe {
		return caps, nil
	}

	const query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)`
	var present []string
	if err := db.SelectContext(ctx, &present, query, pq.Array(probedTables)); err != nil {
		return Capabilities{}, fmt.Errorf("probe schema: %w", err)
	}

	found := make(map[string]bool, len(present))
	for _, name := range present {
		found[name] = true
	}

	caps.Classwork = caps.Classwork && found["classwork_items"]
	caps.Submissions = caps.Submissions && found["classwork_submissions"]
	caps.Gradebook = caps.Gradebook && found["gradebook_config"]
	caps.Instructors = caps.Instructors && found["class_instructors"]
	caps.Notifications = caps.Notifications && found["notifications"]
	caps.AcademicYears = caps.AcademicYears && found["academic_years"]

	for _, table := range probedTables {
		if !found[table] {
			logger.Warn("schema capability disabled, table missing", zap.String("table", table))
		}
	}
	return caps, nil
}
