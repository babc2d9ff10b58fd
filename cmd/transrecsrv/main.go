package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/transrec/armctl"
	"github.jpl.nasa.gov/bdube/transrec/bus"
	"github.jpl.nasa.gov/bdube/transrec/channels"
	"github.jpl.nasa.gov/bdube/transrec/config"
	"github.jpl.nasa.gov/bdube/transrec/simdigitizer"
	"github.jpl.nasa.gov/bdube/transrec/timeaxis"
)

// Version is the version number. Typically injected via ldflags with git build.
var Version = "1"

// ConfigFileName is where mkconf writes and run/conf read the YAML config.
var ConfigFileName = "transrecsrv.yml"

func root() {
	str := `transrecsrv exposes a simulated transient recorder over HTTP.

Usage:
	transrecsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `transrecsrv is configured via its .yaml file. For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used. The command mkconf
generates the configuration file with the default values.

The Simulation block configures the built-in software digitizer: NoiseAmplitude,
OverflowAfterBursts, OverflowBufferedBursts and WarmupDelay (a duration string
like "50ms"). Edits to SleepAfterBurst or the Simulation block while the server
is running are picked up without a restart: SleepAfterBurst from the next
burst, the Simulation values from their next use. WarmupDelay only applies
until the simulated digitizer has warmed up once.`
	fmt.Println(str)
}

func mkconf() {
	if err := config.Load(ConfigFileName); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Unmarshal()
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(cfg); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	if err := config.Load(ConfigFileName); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Unmarshal()
	if err != nil {
		log.Fatal(err)
	}
	if err := yml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("transrecsrv version %v\n", Version)
}

func run() {
	if err := config.Load(ConfigFileName); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Unmarshal()
	if err != nil {
		log.Fatal(err)
	}

	simOpts, err := config.DecodeSimOptions(cfg)
	if err != nil {
		log.Fatal(err)
	}

	recorder := channels.NewRecorder(cfg.Recorder.Root, cfg.Recorder.Prefix)

	var ctrl *armctl.Controller
	driver := channels.NewDriver(cfg.NumChannels, func() bool { return ctrl.AllowingData() }, recorder)

	axis := timeaxis.NewPort()
	adapterFactory, digitizer := simdigitizer.New(driver, simOpts)
	ctrl, err = armctl.NewController(armctl.Options{
		Adapter:         adapterFactory,
		ChannelsFactory: simdigitizer.ChannelsFactory(driver),
		TimeAxis:        axis,
	})
	if err != nil {
		log.Fatal(err)
	}
	ctrl.SetDigitizerName(cfg.DigitizerName)
	ctrl.SetSleepAfterBurst(cfg.SleepAfterBurst)

	stop := make(chan struct{})
	defer close(stop)
	err = config.Watch(ConfigFileName, func(reloaded config.Config) {
		ctrl.SetSleepAfterBurst(reloaded.SleepAfterBurst)
		if simOpts, err := config.DecodeSimOptions(reloaded); err != nil {
			log.Println("config: reloaded simulation parameters invalid:", err)
		} else {
			digitizer.SetSimOptions(simOpts)
		}
		log.Println("config: reloaded SLEEP_AFTER_BURST =", reloaded.SleepAfterBurst)
	}, stop)
	if err != nil {
		log.Println("config: hot-reload watch not started:", err)
	}

	b := bus.New(ctrl)
	b.BindTimeAxis(axis)
	channels.NewRecorderHTTP(recorder).BindRoutes(b.Router())

	root := chi.NewRouter()
	stem := strings.TrimSuffix(cfg.Root, "/")
	if stem == "" {
		root.Mount("/", b.Router())
	} else {
		root.Mount(stem, b.Router())
	}

	log.Println("now listening for requests at", cfg.Addr+cfg.Root)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
