package audit

import (
	"github.com/streadway/amqp"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
	"github.com/scribeline/scribeline/internal/pkg/rabbit"
)

//Sink records run lifecycle events. Best effort - implementations
//may not block and may not fail the caller.
type Sink interface {
	Send(event *messages.RunEvent)
}

//RabbitSink publishes events to the run events queue.
//Publish errors are logged and discarded.
type RabbitSink struct {
	sender *rabbit.Sender
}

//NewRabbitSink creates RabbitSink instance
func NewRabbitSink(provider *rabbit.ChannelProvider) *RabbitSink {
	sender := rabbit.NewSender(provider, func(prv *rabbit.ChannelProvider) error {
		return prv.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
			_, err := rabbit.DeclareQueue(ch, messages.RunEvents)
			return err
		})
	})
	return &RabbitSink{sender: sender}
}

//Send publishes the event, never failing the caller
func (rs *RabbitSink) Send(event *messages.RunEvent) {
	cmdapp.LogIf(rs.sender.Send(event, messages.RunEvents))
}

//NoOpSink drops all events
type NoOpSink struct{}

//Send does nothing
func (NoOpSink) Send(event *messages.RunEvent) {}
