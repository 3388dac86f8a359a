package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Reporter receives the one message a run ends with.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(msg string)

func (f ReporterFunc) Report(msg string) { f(msg) }

type logReporter struct {
	log logrus.FieldLogger
}

func (r logReporter) Report(msg string) {
	r.log.Info(msg)
}

// Ledger records every legacy id the run migrates.
type Ledger interface {
	RecordAccount(ctx context.Context, legacy gamedb.DBRef, id uuid.UUID, name string) error
	RecordObject(ctx context.Context, legacy gamedb.DBRef, id uuid.UUID, class string) error
}
