package main

import (
	"flag"
	"log"
	"os"
	"os/signal"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/volknob/pkg/env"
	"github.com/robotalks/volknob/pkg/msgs"
	"github.com/robotalks/volknob/pkg/transport/mqtt"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.NewConfig()
	if conf.ConfigFile != "" {
		if err := conf.LoadFile(conf.ConfigFile, flag.CommandLine); err != nil {
			log.Fatalln(err)
		}
	}
	sc := conf.SessionConfig()
	sc.ClientID, sc.WillTopic = "volmon:"+conf.DeviceID, ""
	opts, prefix, err := sc.ClientOptions()
	if err != nil {
		log.Fatalln(err)
	}
	// the monitor doesn't need the knob's reconnect policy.
	opts.SetAutoReconnect(true)
	var q *mqtt.Queue
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Printf("connected to %s", opts.Servers[0])
		q.Resubscribe()
	})
	q = mqtt.NewQueue(opts, prefix)

	q.Sub("#", func(topic string, payload []byte) {
		if topic != conf.Topics.Status {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		status, err := msgs.DecodeDeviceStatus(payload)
		switch {
		case err != nil:
			log.Printf("%s: bad status: %v", topic, err)
		case status == nil:
			log.Printf("%s: offline", topic)
		default:
			log.Printf("%s: %s", topic, status.String())
		}
	})

	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
