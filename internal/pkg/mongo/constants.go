package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/scribeline/scribeline/internal/pkg/status"
)

const (
	store      = "store"
	runTable   = "runs"
	jobTable   = "jobs"
	audioTable = "audio"
)

var activeStatuses = []string{status.Name(status.Queued), status.Name(status.Processing)}

var indexData = []IndexData{
	newIndexData(runTable, bson.D{{Key: "ID", Value: 1}}, true, nil),
	newIndexData(runTable, bson.D{{Key: "audioID", Value: 1}, {Key: "paramsHash", Value: 1}}, false, nil),
	newIndexData(jobTable, bson.D{{Key: "ID", Value: 1}}, true, nil),
	// guards the one-active-job-per-run invariant at the storage layer.
	// the filter is an equality on a maintained bool as mongo allows $in
	// in partialFilterExpression only from 6.0
	newIndexData(jobTable, bson.D{{Key: "runID", Value: 1}}, true,
		bson.M{"active": true}),
	newIndexData(jobTable, bson.D{{Key: "status", Value: 1}, {Key: "nextRetryAt", Value: 1},
		{Key: "createdAt", Value: 1}}, false, nil),
	newIndexData(audioTable, bson.D{{Key: "ID", Value: 1}}, true, nil),
}
