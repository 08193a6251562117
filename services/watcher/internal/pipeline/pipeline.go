package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/dat"
	"github.com/hidrolab/telemetria/services/watcher/internal/ftpsource"
	"github.com/hidrolab/telemetria/services/watcher/internal/models"
	"github.com/hidrolab/telemetria/services/watcher/internal/utils"
)

// State names the orchestrator phases, logged under the "state" key.
type State string

const (
	StateConnecting    State = "connecting"
	StateListing       State = "listing"
	StateResolving     State = "resolving"
	StateFetching      State = "fetching"
	StateMapping       State = "mapping"
	StateParsing       State = "parsing"
	StateCommitting    State = "committing"
	StateDisconnecting State = "disconnecting"
	StateDone          State = "done"
)

// Source is an open session on the remote file store.
type Source interface {
	List(ctx context.Context) ([]models.RemoteFile, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// Dialer opens a Source. It is called once per run, plus retries.
type Dialer func(ctx context.Context) (Source, error)

// StationDirectory resolves external station codes.
type StationDirectory interface {
	FindByCode(ctx context.Context, code string) (*models.Station, error)
}

// Ledger remembers committed files. LookupFile returns nil, nil when the
// file was never recorded.
type Ledger interface {
	LookupFile(ctx context.Context, name string) (*models.IngestedFile, error)
	RecordFile(ctx context.Context, f models.IngestedFile) error
}

// RetryPolicy bounds connection retries. Authentication failures are never
// retried.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// Options tune one pipeline.
type Options struct {
	Parser        *dat.Parser
	Retry         RetryPolicy
	SkipUnchanged bool
	DryRun        bool
}

// Pipeline drives one ingestion run: connect, list, then per file resolve,
// fetch, map, parse and commit.
type Pipeline struct {
	dial      Dialer
	stations  StationDirectory
	committer *Committer
	ledger    Ledger
	opts      Options
	logger    *zap.Logger
}

// New wires a pipeline. ledger may be nil.
func New(dial Dialer, stations StationDirectory, readings ReadingStore, ledger Ledger, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Parser == nil {
		opts.Parser = dat.NewParser(dat.DefaultAliases(), time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		dial:      dial,
		stations:  stations,
		committer: NewCommitter(readings),
		ledger:    ledger,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes one full pass over the remote directory. The returned error is
// non-nil only for fatal failures; per-file failures are reported in the
// summary.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	log := p.logger.With(zap.String("run_id", summary.RunID.String()))

	log.Info("run started", zap.String("state", string(StateConnecting)), zap.Bool("dry_run", p.opts.DryRun))
	src, err := p.connect(ctx, log)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		log.Error("connection failed", zap.String("state", string(StateConnecting)), zap.Error(err))
		return summary, fatal(err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("disconnect failed", zap.String("state", string(StateDisconnecting)), zap.Error(err))
		}
	}()

	files, err := src.List(ctx)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		log.Error("listing failed", zap.String("state", string(StateListing)), zap.Error(err))
		return summary, fatal(fmt.Errorf("list remote files: %w", err))
	}
	summary.Listed = len(files)
	log.Info("remote files listed", zap.String("state", string(StateListing)), zap.Int("candidates", len(files)))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now().UTC()
			return summary, fatal(err)
		}
		summary.Files = append(summary.Files, p.ProcessFile(ctx, src, file, log))
	}

	summary.FinishedAt = time.Now().UTC()
	log.Info("run finished",
		zap.String("state", string(StateDone)),
		zap.Int("files_processed", summary.Processed()),
		zap.Int("files_skipped", summary.Skipped()),
		zap.Int("files_failed", summary.Failed()),
		zap.Int("records_written", summary.RecordsWritten()),
		zap.Int("rows_rejected", summary.RowsRejected()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (p *Pipeline) connect(ctx context.Context, log *zap.Logger) (Source, error) {
	b := backoff.NewExponentialBackOff()
	if p.opts.Retry.Initial > 0 {
		b.InitialInterval = p.opts.Retry.Initial
	}
	if p.opts.Retry.Max > 0 {
		b.MaxInterval = p.opts.Retry.Max
	}
	b.MaxElapsedTime = 0

	retries := p.opts.Retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	var src Source
	op := func() error {
		s, err := p.dial(ctx)
		if err != nil {
			if errors.Is(err, ftpsource.ErrAuth) {
				return backoff.Permanent(err)
			}
			return err
		}
		src = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("connect attempt failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return src, nil
}

// ProcessFile runs the per-file states. Failures stay inside the returned
// result.
func (p *Pipeline) ProcessFile(ctx context.Context, src Source, file models.RemoteFile, log *zap.Logger) FileResult {
	res := FileResult{Name: file.Name}
	log = log.With(zap.String("file", file.Name))

	code, ok := utils.StationCodeFromFilename(file.Name)
	if !ok {
		res.skip(KindUnresolvable, errors.New("filename does not carry a station code"))
		log.Warn("skipping file", zap.String("state", string(StateResolving)), zap.Error(res.Err))
		return res
	}
	res.StationCode = code
	log = log.With(zap.String("station", code))

	station, err := p.stations.FindByCode(ctx, code)
	if err != nil {
		res.skip(KindUnresolvable, err)
		if errors.Is(err, models.ErrStationNotFound) {
			log.Warn("skipping file: unknown station", zap.String("state", string(StateResolving)))
		} else {
			res.Status = StatusFailed
			log.Error("station lookup failed", zap.String("state", string(StateResolving)), zap.Error(err))
		}
		return res
	}

	if p.opts.SkipUnchanged && p.ledger != nil {
		prev, err := p.ledger.LookupFile(ctx, file.Name)
		if err != nil {
			log.Warn("ledger lookup failed", zap.Error(err))
		} else if prev != nil && prev.Matches(file) {
			res.Status = StatusUnchanged
			log.Info("file unchanged since last commit", zap.String("state", string(StateResolving)))
			return res
		}
	}

	payload, err := src.Fetch(ctx, file.Name)
	if err != nil {
		res.fail(KindFetch, err)
		log.Error("fetch failed", zap.String("state", string(StateFetching)), zap.Error(err))
		return res
	}

	text, err := utils.DecodeLatin1(payload)
	if err != nil {
		res.fail(KindFetch, err)
		log.Error("decode failed", zap.String("state", string(StateFetching)), zap.Error(err))
		return res
	}

	parsed, err := p.opts.Parser.Parse(utils.SplitLines(text), station.ID)
	switch {
	case errors.Is(err, dat.ErrEmptyPayload):
		res.Status = StatusEmpty
		res.Err = &Error{Kind: KindEmpty, File: file.Name, Err: err}
		log.Info("file is empty", zap.String("state", string(StateMapping)))
		return res
	case err != nil:
		res.fail(KindRowMalformed, err)
		log.Error("header unreadable", zap.String("state", string(StateMapping)), zap.Error(err))
		return res
	}
	log.Debug("header mapped", zap.String("state", string(StateMapping)), zap.Stringer("columns", parsed.Index))

	for _, rowErr := range parsed.Rejected {
		log.Debug("row skipped", zap.String("state", string(StateParsing)), zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
	}
	res.Parsed = len(parsed.Readings)
	res.Rejected = len(parsed.Rejected)
	res.Ignored = parsed.Ignored

	if len(parsed.Readings) == 0 {
		res.Status = StatusEmpty
		res.Err = &Error{Kind: KindEmpty, File: file.Name, Err: errors.New("no valid records")}
		log.Info("no valid records", zap.String("state", string(StateParsing)), zap.Int("rows_rejected", res.Rejected))
		return res
	}

	if p.opts.DryRun {
		res.Status = StatusDryRun
		last := parsed.Readings[len(parsed.Readings)-1]
		log.Info("dry-run: skipping commit",
			zap.String("state", string(StateCommitting)),
			zap.Int("records", res.Parsed),
			zap.Time("last_ts", last.Timestamp),
			zap.String("last_oxigeno_disuelto", utils.ValuePtrString(last.DissolvedOxygen)),
		)
		return res
	}

	written, err := p.committer.Commit(ctx, parsed.Readings)
	if err != nil {
		res.fail(KindCommit, err)
		log.Error("commit failed", zap.String("state", string(StateCommitting)), zap.Error(err))
		return res
	}
	res.Status = StatusCommitted
	res.Written = written
	log.Info("records saved",
		zap.String("state", string(StateCommitting)),
		zap.String("station_name", station.Name),
		zap.Int("records", written),
		zap.Int("rows_rejected", res.Rejected),
	)

	if p.ledger != nil {
		entry := models.IngestedFile{
			Name:       file.Name,
			Size:       int64(file.Size),
			ModifiedAt: file.ModTime,
			Records:    written,
			IngestedAt: time.Now().UTC(),
		}
		if err := p.ledger.RecordFile(ctx, entry); err != nil {
			log.Warn("ledger update failed", zap.Error(err))
		}
	}
	return res
}
