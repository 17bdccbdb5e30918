package runstatus

import (
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
	"github.com/scribeline/scribeline/internal/pkg/mongo"
	"github.com/scribeline/scribeline/internal/pkg/rabbit"
)

var appName = "Scribeline Status Provider Service"

var rootCmd = &cobra.Command{
	Use:   "statusProviderService",
	Short: appName,
	Long:  `HTTP server to provide transcription run status and push changes over websocket`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()

	runStore, err := mongo.NewRunStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init run store")

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()

	data := &ServiceData{Runs: runStore,
		Port:             cmdapp.Config.GetInt("port"),
		EventChannelFunc: func() (<-chan amqp.Delivery, error) { return eventChannel(msgChannelProvider) }}

	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func eventChannel(prv *rabbit.ChannelProvider) (<-chan amqp.Delivery, error) {
	ch, err := prv.Channel()
	if err != nil {
		return nil, err
	}
	_, err = rabbit.DeclareQueue(ch, messages.RunEvents)
	if err != nil {
		return nil, err
	}
	return rabbit.NewConsumeChannel(ch, messages.RunEvents)
}
