package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/incus-composer/incus-composer/pkg/compose"
	"github.com/incus-composer/incus-composer/pkg/engine"
	"github.com/incus-composer/incus-composer/pkg/policy"
	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

// violationEntry is the machine-readable form of one violation, shared by
// JSON output and the run journal.
type violationEntry struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// validationOutcome is one full pipeline pass over the document: parse,
// resolve and optional policy evaluation.
type validationOutcome struct {
	Model   *engine.ResolvedModel
	Source  []byte
	Entries []violationEntry
	Policy  *policy.Result
	Outcome stores.Outcome
	Err     error
}

// loadDocument reads and parses the compose document with the front end
// selected by extension. The raw bytes are returned whenever the read
// succeeded, parse error or not, so callers can hash the source.
func loadDocument(path string) (*compose.IncusCompose, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read compose file: %w", err)
	}

	var doc *compose.IncusCompose
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		doc, err = compose.ParseCUE(path, data)
	case ".star":
		doc, err = compose.ParseStarlark(path, data)
	default:
		doc, err = compose.Parse(data)
	}
	if err != nil {
		return nil, data, err
	}
	return doc, data, nil
}

// sourceHash returns the hex sha256 of the document bytes, or an empty
// string when the document was never read.
func sourceHash(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// runValidation executes the pipeline stages under their spans and feeds
// metrics and events. A nil policy engine skips policy evaluation.
func runValidation(ctx context.Context, polEngine *policy.Engine) validationOutcome {
	var (
		doc    *compose.IncusCompose
		source []byte
	)
	err := telemetry.RecordStage(ctx, "compose.parse", func() error {
		var perr error
		doc, source, perr = loadDocument(documentPath)
		return perr
	})
	if err != nil {
		return validationOutcome{Source: source, Outcome: stores.OutcomeError, Err: err}
	}
	tel.Events.PublishDocumentParsed(documentPath, len(doc.Containers))

	var (
		model      *engine.ResolvedModel
		violations engine.Violations
	)
	_ = telemetry.RecordStage(ctx, "engine.resolve", func() error {
		model, violations = engine.Resolve(doc)
		return nil
	})

	for _, v := range violations {
		tel.Metrics.RecordViolation(string(v.Kind()))
		tel.Events.PublishViolationFound(documentPath, "", string(v.Kind()), v.String())
	}

	vo := validationOutcome{
		Model:   model,
		Source:  source,
		Entries: violationEntries(violations),
		Outcome: stores.OutcomeValid,
	}
	if len(violations) > 0 {
		vo.Outcome = stores.OutcomeInvalid
	}

	if model != nil {
		tel.Metrics.SetContainersResolved(float64(len(model.Doc.Containers)))
		tel.Events.PublishPlanComputed(documentPath, len(model.Plan.Order), model.Plan.Depth())
	}

	if polEngine != nil && model != nil {
		result, perr := polEngine.Evaluate(ctx, model)
		if perr != nil {
			vo.Outcome = stores.OutcomeError
			vo.Err = fmt.Errorf("policy evaluation failed: %w", perr)
			return vo
		}
		vo.Policy = result
		for _, v := range result.Violations {
			tel.Metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
		}
		vo.Entries = append(vo.Entries, policyEntries(result)...)
		if !result.Allowed {
			vo.Outcome = stores.OutcomeInvalid
		}
	}
	return vo
}

// requireModel resolves the document and insists on a clean result. The
// commands that consume a resolved model go through this gate; failures
// are reported on stderr and journaled.
func requireModel(ctx context.Context, started time.Time) (*engine.ResolvedModel, []byte, error) {
	vo := runValidation(ctx, nil)
	if vo.Err != nil {
		journalRun(ctx, vo.Source, stores.OutcomeError, nil, started)
		return nil, nil, vo.Err
	}
	if vo.Outcome != stores.OutcomeValid {
		fmt.Fprintf(os.Stderr, "%s is invalid (%d violations):\n", documentPath, len(vo.Entries))
		for _, e := range vo.Entries {
			fmt.Fprintf(os.Stderr, "  - %s\n", e.Message)
		}
		journalRun(ctx, vo.Source, stores.OutcomeInvalid, vo.Entries, started)
		return nil, nil, fmt.Errorf("%s is invalid: %d violation(s)", documentPath, len(vo.Entries))
	}
	return vo.Model, vo.Source, nil
}

func violationEntries(violations engine.Violations) []violationEntry {
	if len(violations) == 0 {
		return nil
	}
	entries := make([]violationEntry, 0, len(violations))
	for _, v := range violations {
		entries = append(entries, violationEntry{Kind: string(v.Kind()), Message: v.String()})
	}
	return entries
}

func policyEntries(result *policy.Result) []violationEntry {
	if result == nil || len(result.Violations) == 0 {
		return nil
	}
	entries := make([]violationEntry, 0, len(result.Violations))
	for _, v := range result.Violations {
		msg := fmt.Sprintf("[%s] %s: %s", v.Severity, v.Policy, v.Message)
		if v.Container != "" {
			msg = fmt.Sprintf("[%s] %s: %s: %s", v.Severity, v.Policy, v.Container, v.Message)
		}
		entries = append(entries, violationEntry{Kind: "policy", Message: msg})
	}
	return entries
}

// journalRun records one finished invocation when the journal is enabled.
func journalRun(ctx context.Context, source []byte, outcome stores.Outcome, entries []violationEntry, started time.Time) {
	if !useJournal {
		return
	}
	run := stores.NewRun(documentPath, sourceHash(source))
	finishRun(run, outcome, entries, started)
	recordRun(ctx, run)
}

// finishRun fills in the outcome fields of a journal entry.
func finishRun(run *stores.Run, outcome stores.Outcome, entries []violationEntry, started time.Time) {
	run.Outcome = outcome
	run.ViolationCount = len(entries)
	run.Duration = time.Since(started)
	if len(entries) > 0 {
		if data, err := json.Marshal(entries); err == nil {
			run.Violations = string(data)
		}
	}
}

// recordRun writes a journal entry. Journal failures are logged and never
// fail the command; the journal is bookkeeping, not pipeline state.
func recordRun(ctx context.Context, run *stores.Run) {
	if !useJournal {
		return
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: journalPath})
	if err != nil {
		tel.Logger.WithError(err).Warn("Failed to open run journal")
		return
	}
	if err := store.Init(ctx); err != nil {
		tel.Logger.WithError(err).Warn("Failed to open run journal")
		return
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		tel.Logger.WithError(err).Warn("Failed to migrate run journal")
		return
	}
	if err := store.CreateRun(ctx, run); err != nil {
		tel.Logger.WithError(err).Warn("Failed to journal run")
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
