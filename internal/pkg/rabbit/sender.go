package rabbit

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
)

//Sender publishes run events using rabbit mq broker
type Sender struct {
	ChannelProvider *ChannelProvider
	initialized     bool
	initFunc        *initFunc
	m               sync.Mutex
}

type initFunc func(*ChannelProvider) error

//NewSender initializes rabbit sender
func NewSender(provider *ChannelProvider, f initFunc) *Sender {
	return &Sender{ChannelProvider: provider, initialized: false, initFunc: &f}
}

//Send publishes the event to the queue
func (sender *Sender) Send(event *messages.RunEvent, queue string) error {
	err := initialize(sender)
	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't initialize sender")
	}
	cmdapp.Log.Infof("Sending event %s(%s)", queue, event.RunID)

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "Can't marshal event")
	}

	ch, err := sender.ChannelProvider.Channel()
	if err != nil {
		return errors.Wrap(err, "Can't init channel")
	}
	err = ch.Publish(
		"", // exchange
		queue,
		false, // mandatory
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         msgBytes,
		})

	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't send event")
	}
	return nil
}

func initialize(sender *Sender) error {
	sender.m.Lock()
	defer sender.m.Unlock()

	if !sender.initialized && sender.initFunc != nil {
		f := *sender.initFunc
		err := f(sender.ChannelProvider)
		if err != nil {
			return err
		}
		sender.initialized = true
	}
	return nil
}
