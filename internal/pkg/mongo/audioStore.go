package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
)

// AudioStore reads and updates the owning audio resources
type AudioStore struct {
	SessionProvider *SessionProvider
}

//NewAudioStore creates AudioStore instance
func NewAudioStore(sessionProvider *SessionProvider) (*AudioStore, error) {
	f := AudioStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Get retrieves audio resource by ID
func (as *AudioStore) Get(id string) (*persistence.Audio, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := as.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(audioTable)
	var res persistence.Audio
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't get audio")
	}
	return &res, nil
}

// SetStatus updates audio processing status and the result summary blob
func (as *AudioStore) SetStatus(id string, st string, summary map[string]interface{}) error {
	cmdapp.Log.Infof("Marking audio %s: %s", id, st)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := as.SessionProvider.NewSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(audioTable)
	set := bson.M{"status": st}
	if summary != nil {
		set["summary"] = summary
	}
	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "can't update audio")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("audio not found: %s", id)
	}
	return nil
}
