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
	"github.com/scribeline/scribeline/internal/pkg/segment"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

// RunStore keeps transcription runs in mongo db
type RunStore struct {
	SessionProvider *SessionProvider
}

//NewRunStore creates RunStore instance
func NewRunStore(sessionProvider *SessionProvider) (*RunStore, error) {
	f := RunStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Create inserts a new run, assigning the next version for the audio
func (rs *RunStore) Create(run *persistence.Run) error {
	cmdapp.Log.Infof("Creating run for audio %s", run.AudioID)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := rs.SessionProvider.NewSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(runTable)

	var latest persistence.Run
	err = c.FindOne(ctx, bson.M{"audioID": sanitize(run.AudioID)},
		options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})).Decode(&latest)
	if err == nil {
		run.Version = latest.Version + 1
	} else if err == mongo.ErrNoDocuments {
		run.Version = 1
	} else {
		return errors.Wrap(err, "can't get latest version")
	}
	run.CreatedAt = time.Now()

	_, err = c.InsertOne(ctx, run)
	return err
}

// Get retrieves a run by ID
func (rs *RunStore) Get(id string) (*persistence.Run, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := rs.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(runTable)
	var res persistence.Run
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't get run")
	}
	return &res, nil
}

// FindLatestByHash retrieves the most recent run for the audio with
// the same params hash, regardless of status
func (rs *RunStore) FindLatestByHash(audioID string, paramsHash string) (*persistence.Run, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := rs.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(runTable)
	var res persistence.Run
	err = c.FindOne(ctx, bson.M{"audioID": sanitize(audioID), "paramsHash": sanitize(paramsHash)},
		options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't get run by hash")
	}
	return &res, nil
}

// MarkQueued moves the run back to the queue, clearing previous outcome
func (rs *RunStore) MarkQueued(id string) error {
	return rs.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Queued)},
		"$unset": bson.M{"error": "", "text": "", "segments": "", "completedAt": "",
			"speakerCount": "", "confidence": ""}})
}

// MarkProcessing moves the run to processing
func (rs *RunStore) MarkProcessing(id string) error {
	return rs.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Processing)}})
}

// SaveResult marks the run succeeded with the recognition outcome attached
func (rs *RunStore) SaveResult(id string, text string, segments []segment.Segment,
	speakerCount int, confidence float64) error {
	cmdapp.Log.Infof("Saving result for run %s", id)
	now := time.Now()
	return rs.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Succeeded),
		"text": text, "segments": segments, "speakerCount": speakerCount,
		"confidence": confidence, "completedAt": now},
		"$unset": bson.M{"error": ""}})
}

// SaveFailure marks the run failed keeping the error message
func (rs *RunStore) SaveFailure(id string, errMsg string) error {
	cmdapp.Log.Infof("Saving failure for run %s", id)
	now := time.Now()
	return rs.update(id, bson.M{"$set": bson.M{"status": status.Name(status.Failed),
		"error": errMsg, "completedAt": now}})
}

func (rs *RunStore) update(id string, update bson.M) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := rs.SessionProvider.NewSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(runTable)
	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, update)
	if err != nil {
		return errors.Wrap(err, "can't update run")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("run not found: %s", id)
	}
	return nil
}
