package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

// JobStore keeps async work items in mongo db
type JobStore struct {
	SessionProvider *SessionProvider
}

//NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	f := JobStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Enqueue inserts the job unless an active one exists for the run.
// Returns the job bound to the run and true when a new row was created.
func (js *JobStore) Enqueue(job *persistence.Job) (*persistence.Job, bool, error) {
	existing, err := js.FindActiveByRun(job.RunID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		cmdapp.Log.Infof("Active job %s exists for run %s", existing.ID, existing.RunID)
		return existing, false, nil
	}

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return nil, false, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	// backs the partial unique index on runID
	job.Active = true
	_, err = c.InsertOne(ctx, job)
	if mongo.IsDuplicateKeyError(err) {
		// lost the enqueue race, the unique active-run index caught it
		existing, ferr := js.FindActiveByRun(job.RunID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "can't insert job")
	}
	return job, true, nil
}

// FindActiveByRun returns the queued or processing job for the run, if any
func (js *JobStore) FindActiveByRun(runID string) (*persistence.Job, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	var res persistence.Job
	err = c.FindOne(ctx, bson.M{"runID": sanitize(runID),
		"status": bson.M{"$in": activeStatuses}}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't get job by run")
	}
	return &res, nil
}

// ListDue returns queued jobs eligible to process now, oldest first
func (js *JobStore) ListDue(now time.Time, limit int) ([]persistence.Job, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	cursor, err := c.Find(ctx, bson.M{"status": status.Name(status.Queued),
		"$or": []bson.M{
			{"nextRetryAt": bson.M{"$exists": false}},
			{"nextRetryAt": nil},
			{"nextRetryAt": bson.M{"$lte": now}}}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Wrap(err, "can't list due jobs")
	}
	defer cursor.Close(ctx)
	var res []persistence.Job
	if err := cursor.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "can't read due jobs")
	}
	return res, nil
}

// Claim marks the queued job processing and counts the attempt.
// Returns nil when the job is not queued anymore - somebody else claimed it.
func (js *JobStore) Claim(id string) (*persistence.Job, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	var res persistence.Job
	err = c.FindOneAndUpdate(ctx,
		bson.M{"ID": sanitize(id), "status": status.Name(status.Queued)},
		bson.M{"$set": bson.M{"status": status.Name(status.Processing), "updatedAt": time.Now()},
			"$inc":   bson.M{"attemptsMade": 1},
			"$unset": bson.M{"nextRetryAt": ""}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't claim job")
	}
	return &res, nil
}

// MarkSucceeded moves the job to its terminal success state
func (js *JobStore) MarkSucceeded(id string) error {
	return js.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Succeeded),
		"active": false, "updatedAt": time.Now()},
		"$unset": bson.M{"nextRetryAt": "", "error": ""}})
}

// Requeue schedules the job for a retry after the backoff delay
func (js *JobStore) Requeue(id string, nextRetryAt time.Time, errMsg string) error {
	cmdapp.Log.Infof("Requeue job %s at %s", id, nextRetryAt.Format(time.RFC3339))
	return js.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Queued),
		"nextRetryAt": nextRetryAt, "error": errMsg, "updatedAt": time.Now()}})
}

// MarkFailed moves the job to its terminal failed state
func (js *JobStore) MarkFailed(id string, errMsg string) error {
	return js.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Failed),
		"active": false, "error": errMsg, "updatedAt": time.Now()},
		"$unset": bson.M{"nextRetryAt": ""}})
}

func (js *JobStore) update(id string, update bson.M) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, update)
	if err != nil {
		return errors.Wrap(err, "can't update job")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("job not found: %s", id)
	}
	return nil
}
