package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vidbox/src/handler/api"
	"vidbox/src/player"
	"vidbox/src/player/mpd"
	"vidbox/src/player/mpv"
	"vidbox/src/resume"
	"vidbox/src/subtitle"
	"vidbox/src/subtitle/opensub"
	"vidbox/src/util"
)

const confFile = "config.yaml"

var (
	build       = "%BUILD%"
	version     = "%VERSION%"
	versionDate = "%VERSION_DATE%"
)

type config struct {
	Address string `yaml:"bind"`

	StorageDir string `yaml:"storage_dir"`

	MPV *struct {
		Binary string   `yaml:"binary"`
		Args   []string `yaml:"args"`
	} `yaml:"mpv"`

	MPD *struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
	} `yaml:"mpd"`

	Subtitles *struct {
		APIURL   string `yaml:"api_url"`
		Language string `yaml:"language"`
	} `yaml:"subtitles"`
}

func (conf *config) Validate() (errs []error) {
	if conf.Address == "" {
		errs = append(errs, fmt.Errorf("config: `bind` is required"))
	}
	if conf.StorageDir == "" {
		errs = append(errs, fmt.Errorf("config: `storage_dir` is required"))
	}
	if conf.MPV != nil && conf.MPD != nil {
		errs = append(errs, fmt.Errorf("config: `mpv` and `mpd` are mutually exclusive"))
	}
	return
}

func LoadConfig(filename string) (*config, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	d := yaml.NewDecoder(fd)
	d.KnownFields(true)
	var conf config
	if err := d.Decode(&conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func main() {
	defaultLogLevel := "warn"
	if build == "debug" {
		defaultLogLevel = "debug"
	}

	configFile := flag.String("conf", confFile, "Path to the configuration file")
	printVersion := flag.Bool("version", false, "Print version information and exit")
	logLevel := flag.String("log", defaultLogLevel, "Sets the log level. [debug, info, warn, error]")
	flag.Parse()

	if ll, err := log.ParseLevel(*logLevel); err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	} else {
		log.SetLevel(ll)
	}

	if *printVersion {
		fmt.Printf("Version: %v (%v)\n", version, versionDate)
		fmt.Printf("Build: %v\n", build)
		return
	}

	log.Infof("Version: %v (%v)", version, build)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		log.Fatalf("Could not load config: %v", errs)
	}

	storeDir := strings.Replace(config.StorageDir, "~", os.Getenv("HOME"), 1)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		log.Fatalf("Unable to create storage dir: %v", err)
	}
	log.Infof("Using %q for storage", storeDir)

	resumeStore, err := resume.NewStore(path.Join(storeDir, "resume"))
	if err != nil {
		log.Fatalf("Unable to create resume store: %v", err)
	}

	backend, err := connectToBackend(config)
	if err != nil {
		log.Fatal(err)
	}

	var fetcher subtitle.Fetcher
	if config.Subtitles != nil {
		fetcher = &opensub.Fetcher{
			BaseURL:     config.Subtitles.APIURL,
			Language:    config.Subtitles.Language,
			DownloadDir: path.Join(storeDir, "subtitles"),
		}
	}

	engine := player.NewEngine(backend, fetcher, resumeStore)
	defer engine.Close()

	r := chi.NewRouter()
	r.Use(util.LogHandler)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		api.InitRouter(r, engine)
	})
	if build == "debug" {
		r.Get("/debug/pprof/*", pprof.Index)
	}

	log.Infof("Now accepting HTTP connections on %v", config.Address)
	server := &http.Server{
		Addr:           config.Address,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatalf("Error running webserver: %v", server.ListenAndServe())
}

func connectToBackend(config *config) (player.Backend, error) {
	if config.MPD != nil {
		host, port := config.MPD.Host, config.MPD.Port
		if host == "" {
			host = "127.0.0.1"
		}
		if port == 0 {
			port = 6600
		}
		backend, err := mpd.NewBackend(host, port, config.MPD.Password)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to MPD: %v", err)
		}
		return backend, nil
	}

	var binary string
	var args []string
	if config.MPV != nil {
		binary = config.MPV.Binary
		args = config.MPV.Args
	}
	backend, err := mpv.NewBackend(binary, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to start mpv: %v", err)
	}
	return backend, nil
}
