package repository

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionRuns = "runs"

// Firestore stores runs in the "runs" collection, one document per run ID.
type Firestore struct {
	client *firestore.Client
}

type runDoc struct {
	ID          string    `firestore:"id"`
	Query       string    `firestore:"query"`
	Success     bool      `firestore:"success"`
	ReportTitle string    `firestore:"report_title"`
	Result      string    `firestore:"result"`
	Memory      string    `firestore:"memory"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// New connects to the Firestore database of the project.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutRun(ctx context.Context, run *model.RunSnapshot) error {
	if run == nil || run.ID == "" {
		return goerr.Wrap(model.ErrMalformedInput, "run snapshot without ID")
	}

	doc := runDoc{
		ID:          string(run.ID),
		Query:       run.Query,
		Success:     run.Success,
		ReportTitle: run.ReportTitle,
		Result:      string(run.Result),
		Memory:      string(run.Memory),
		CreatedAt:   run.CreatedAt,
	}
	if _, err := r.client.Collection(collectionRuns).Doc(doc.ID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put run", goerr.V("id", run.ID))
	}
	return nil
}

func (r *Firestore) GetRun(ctx context.Context, id model.RunID) (*model.RunSnapshot, error) {
	snap, err := r.client.Collection(collectionRuns).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "run not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("id", id))
	}

	var doc runDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run", goerr.V("id", id))
	}
	return doc.snapshot(), nil
}

func (r *Firestore) ListRuns(ctx context.Context, limit int) ([]*model.RunSnapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	iter := r.client.Collection(collectionRuns).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var runs []*model.RunSnapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list runs")
		}

		var doc runDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run", goerr.V("doc_id", snap.Ref.ID))
		}
		runs = append(runs, doc.snapshot())
	}
	return runs, nil
}

func (r *Firestore) LatestRun(ctx context.Context) (*model.RunSnapshot, error) {
	return latest(ctx, r)
}

func (x *runDoc) snapshot() *model.RunSnapshot {
	return &model.RunSnapshot{
		ID:          model.RunID(x.ID),
		Query:       x.Query,
		Success:     x.Success,
		ReportTitle: x.ReportTitle,
		Result:      rawJSON(x.Result),
		Memory:      rawJSON(x.Memory),
		CreatedAt:   x.CreatedAt,
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
