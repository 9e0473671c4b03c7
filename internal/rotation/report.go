package rotation

import (
	"log/slog"
	"time"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/quota"
)

// KindReport summarises one kind of a pass.
type KindReport struct {
	Kind        media.Kind
	Quota       *quota.Report
	QuotaErr    error
	Considered  int
	Skipped     map[Decision]int
	Imported    *media.Candidate
	WouldImport *media.Candidate // dry run only
	ImportErr   error
}

// Evicted returns the number of entries evicted in this pass.
func (k *KindReport) Evicted() int {
	if k.Quota == nil {
		return 0
	}
	return len(k.Quota.Evicted)
}

// Failed reports whether any step of the kind failed.
func (k *KindReport) Failed() bool {
	return k.QuotaErr != nil || k.ImportErr != nil
}

// Report summarises a full pass.
type Report struct {
	Started  time.Time
	Duration time.Duration
	DryRun   bool
	Kinds    []*KindReport
}

// Imported returns the number of titles imported across kinds.
func (r *Report) Imported() int {
	n := 0
	for _, k := range r.Kinds {
		if k.Imported != nil {
			n++
		}
	}
	return n
}

// Evicted returns the number of titles evicted across kinds.
func (r *Report) Evicted() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Evicted()
	}
	return n
}

// Log writes the summary of every kind at info level.
func (r *Report) Log(log *slog.Logger) {
	for _, k := range r.Kinds {
		skipped := 0
		for _, n := range k.Skipped {
			skipped += n
		}
		attrs := []any{
			"media_kind", k.Kind,
			"evicted", k.Evicted(),
			"considered", k.Considered,
			"skipped", skipped,
			"imported", k.Imported != nil,
		}
		if k.WouldImport != nil {
			attrs = append(attrs, "would_import", k.WouldImport.ExternalID)
		}
		if k.QuotaErr != nil {
			attrs = append(attrs, "quota_error", k.QuotaErr)
		}
		if k.ImportErr != nil {
			attrs = append(attrs, "import_error", k.ImportErr)
		}
		log.Info("rotation summary", attrs...)
	}
	log.Info("rotation pass complete", "dry_run", r.DryRun, "imported", r.Imported(),
		"evicted", r.Evicted(), "duration_ms", r.Duration.Milliseconds())
}
