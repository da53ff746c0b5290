package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// scanRun tracks one scan for logging and metrics.
type scanRun struct {
	metrics *Metrics
	mode    string
	log     *logrus.Entry
	start   time.Time

	scanned int
	matched int
}

func (e *Executor) begin(mode string, fields logrus.Fields) *scanRun {
	log := e.log.WithFields(fields).WithFields(logrus.Fields{
		"scan_id": uuid.NewString(),
		"mode":    mode,
	})
	log.Debug("scan started")
	return &scanRun{metrics: e.metrics, mode: mode, log: log, start: time.Now()}
}

// evaluate tests rec and counts it. A nil predicate selects every record.
func (s *scanRun) evaluate(pred predicate.Predicate, rec *record.Record, types predicate.PropertyTypes) (bool, error) {
	s.scanned++
	if pred == nil {
		s.matched++
		return true, nil
	}
	ok, err := pred.Execute(rec, types)
	if err != nil {
		return false, err
	}
	if ok {
		s.matched++
	}
	return ok, nil
}

func (s *scanRun) finish(err error) {
	elapsed := time.Since(s.start)
	s.metrics.observe(s.mode, err, s.scanned, s.matched, elapsed)
	log := s.log.WithFields(logrus.Fields{
		"scanned": s.scanned,
		"matched": s.matched,
		"elapsed": elapsed,
	})
	if err != nil {
		log.WithError(err).Debug("scan failed")
		return
	}
	log.Debug("scan finished")
}

// ============================================================================
// Class scan
// ============================================================================

// Find returns every record of className, including its subclasses, that
// satisfies pred. kind restricts the class to vertices or edges
// (schema.Undefined accepts either). A nil pred selects every record.
//
// Property types are resolved before any record is read: a property typed
// differently by two of the scanned classes fails with
// schema.ErrConflictPropertyType, one declared by none of them with
// schema.ErrNoSuchProperty.
//
// Example:
//
//	rs, err := exec.Find("Person", schema.Vertex,
//		predicate.Prop("name").BeginWith(value.Text("a")).IgnoreCase())
func (e *Executor) Find(className string, kind schema.ClassType, pred predicate.Predicate) (ResultSet, error) {
	var rs ResultSet
	err := e.scanClass(className, kind, pred, func(r Result) {
		rs = append(rs, r)
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// FindIDs is Find returning record ids only.
func (e *Executor) FindIDs(className string, kind schema.ClassType, pred predicate.Predicate) ([]record.ID, error) {
	var ids []record.ID
	err := e.scanClass(className, kind, pred, func(r Result) {
		ids = append(ids, r.ID)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Executor) scanClass(className string, kind schema.ClassType, pred predicate.Predicate, emit func(Result)) (err error) {
	run := e.begin(modeClass, logrus.Fields{"class": className, "kind": kind.String()})
	defer func() { run.finish(err) }()

	classes, err := e.snap.ClassesByName([]string{className}, kind)
	if err != nil {
		return err
	}
	types, err := resolvePropertyTypes(classes, propertyNames(pred))
	if err != nil {
		return err
	}

	for _, c := range classes {
		err := e.snap.ScanClass(c.ID(), func(pos record.Position, raw []byte) error {
			if pos == record.SentinelPosition {
				return nil
			}
			rid := record.ID{ClassID: c.ID(), Position: pos}
			rec, err := record.DecodeWithBasicInfo(c.Name(), rid, raw, c.Properties)
			if err != nil {
				return err
			}
			ok, err := run.evaluate(pred, rec, types)
			if err != nil {
				return err
			}
			if ok {
				emit(Result{ID: rid, Record: rec})
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan class %q: %w", c.Name(), err)
		}
	}
	return nil
}
