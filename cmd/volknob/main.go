package main

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/volknob/pkg/cli/console"
	"github.com/robotalks/volknob/pkg/control"
	"github.com/robotalks/volknob/pkg/display"
	"github.com/robotalks/volknob/pkg/display/mirror"
	"github.com/robotalks/volknob/pkg/env"
	fx "github.com/robotalks/volknob/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	if conf.ConfigFile != "" {
		if err := conf.LoadFile(conf.ConfigFile, flag.CommandLine); err != nil {
			glog.Fatalf("load config: %v", err)
		}
	}
	if err := conf.Validate(); err != nil {
		glog.Fatalf("invalid config: %v", err)
	}

	hw, sim, err := conf.OpenHardware()
	if err != nil {
		glog.Fatalf("open %s hardware: %v", conf.Hardware, err)
	}
	session, err := conf.SessionConfig().NewSession()
	if err != nil {
		glog.Fatalf("MQTT session: %v", err)
	}

	latest := &display.Latest{}
	disp := display.Multi{&display.Log{}, latest}
	var mirrorSrv *mirror.Mirror
	if conf.MirrorAddr != "" {
		mirrorSrv = mirror.New(conf.MirrorAddr)
		disp = append(disp, mirrorSrv)
	}

	ctl, err := control.New(conf.ControlConfig(env.LocalAddress()), session, hw, disp)
	if err != nil {
		glog.Fatalf("controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(ctl)
	if mirrorSrv != nil {
		loop.AddRunnable(fx.NamedRun("mirror", mirrorSrv))
	}
	if conf.Console {
		if sim == nil {
			glog.Fatalf("console requires %s hardware", env.HardwareSim)
		}
		con := console.New(sim, latest, conf.AnalogMax)
		con.OnExit = cancel
		loop.AddRunnable(fx.NamedRun("console", con))
	}
	if conf.TestSequence {
		loop.Add(control.NewSequence(ctl.Publisher, cancel))
	}

	runner := fx.NewRunnerWith(ctx).HandleSignals()
	runner.Go(fx.NamedRun("loop", loop))
	err = runner.Wait()
	if errors.Is(err, fx.ErrForcedExit) {
		glog.Fatal(err)
	}
	ctl.Shutdown()
	session.Close()
	if err != nil {
		glog.Fatal(err)
	}
}
