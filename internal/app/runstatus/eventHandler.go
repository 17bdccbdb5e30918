package runstatus

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/scribeline/scribeline/internal/app/runstatus/api"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
)

type eventChannelFunc func() (<-chan amqp.Delivery, error)

func listenQueue(channel <-chan amqp.Delivery, data *ServiceData, fc chan<- bool) {
	for d := range channel {
		err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Errorf("Can't process message %s\n%s", d.MessageId, string(d.Body))
			cmdapp.Log.Error(err)
		}
		cmdapp.LogIf(d.Ack(false))
	}
	cmdapp.Log.Infof("Stopped listening queue")
	close(fc)
}

func registerQueue(data *ServiceData, quitChan <-chan bool, initialWait time.Duration) {
	wait := initialWait
	for {
		select {
		case <-quitChan:
			cmdapp.Log.Infof("Quit listening queue")
			return
		default:
			fc := make(chan bool)
			cmdapp.Log.Infof("Trying listening queue")
			msgs, err := data.EventChannelFunc()
			if err != nil {
				cmdapp.Log.Error(err)
				wait = wait * 2
				if wait > time.Minute {
					wait = time.Minute
				}
				cmdapp.Log.Infof("Wait before reconnect %d s", wait/time.Second)
				time.Sleep(wait)
				continue
			}
			wait = initialWait
			go listenQueue(msgs, data, fc)
			<-fc
		}
	}
}

func processMsg(d *amqp.Delivery, data *ServiceData) error {
	var event messages.RunEvent
	err := json.Unmarshal(d.Body, &event)
	if err != nil {
		return errors.Wrap(err, "Can't unmarshal event")
	}
	cmdapp.Log.Infof("Got %s event for run %s", event.Event, event.RunID)
	conns, found := getConnections(event.RunID)
	if !found {
		cmdapp.Log.Infof("No connections found for %s", event.RunID)
		return nil
	}
	result, err := getStatus(data, event.RunID)
	if err != nil {
		return err
	}
	for c := range conns {
		cmdapp.LogIf(sendMsg(c, result))
	}
	return nil
}

func sendMsg(c WsConn, result *api.RunStatus) error {
	cmdapp.Log.Debugf("Sending status of %s to websocket", result.ID)
	err := c.WriteJSON(result)
	if err != nil {
		return errors.Wrap(err, "Cannot write to websocket")
	}
	return nil
}
