package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/request"
	"github.com/janelia-flyem/neuprep/sheets"
)

// SyncResult reports a SyncRequests run.
type SyncResult struct {
	Pending neuprep.Identifiers
	Update  *UpdateResult
}

// SyncRequests reads request identifiers not yet processed from the
// spreadsheet, updates those neurons and appends a row per identifier to the
// processed range.
func (p *Pipeline) SyncRequests(ctx context.Context) (*SyncResult, error) {
	if p.deps.Sheets == nil {
		return nil, fmt.Errorf("no spreadsheet client configured")
	}
	reqRange, doneRange := p.cfg.Sheets.RequestRange, p.cfg.Sheets.DoneRange
	pending, err := sheets.Pending(ctx, p.deps.Sheets, reqRange, doneRange)
	if err != nil {
		return nil, err
	}
	res := &SyncResult{Pending: pending}
	if len(pending) == 0 {
		neuprep.Infof("No pending requests in %q\n", reqRange)
		return res, nil
	}
	update, err := p.UpdateNeurons(ctx, request.Identifiers(pending...))
	if err != nil {
		return nil, err
	}
	res.Update = update

	stored := make(map[neuprep.Identifier]struct{}, len(update.Stored))
	for _, id := range update.Stored {
		stored[id] = struct{}{}
	}
	now := time.Now()
	records := make([]sheets.Processed, 0, len(pending))
	for _, id := range pending {
		status := sheets.StatusDone
		if _, found := update.Failed[id]; found {
			status = sheets.StatusFailed
		} else if _, found := stored[id]; !found {
			status = sheets.StatusMissing
		}
		records = append(records, sheets.Processed{ID: id, Status: status, Time: now})
	}
	if err := sheets.AppendProcessed(ctx, p.deps.Sheets, doneRange, records); err != nil {
		return nil, err
	}
	if failed := update.failedIDs(); len(failed) != 0 {
		neuprep.Warningf("[%s] %d requests failed: %v\n", update.RunID, len(failed), failed)
	}
	return res, nil
}
