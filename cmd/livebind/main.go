// Command livebind renders the data-bound containers of an HTML page against
// a JSON file, either once or continuously while watching the data file for
// changes. Multiple pages can be described in a YAML config instead of
// flags.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	livebind "github.com/goliatone/go-livebind"
	"github.com/goliatone/go-livebind/pkg/dom"
	"github.com/goliatone/go-livebind/pkg/source"
)

type binding struct {
	Template string `yaml:"template"`
	Data     string `yaml:"data"`
	Output   string `yaml:"output"`
}

type fileConfig struct {
	Bindings []binding `yaml:"bindings"`
}

func main() {
	templateFlag := flag.String("template", "", "HTML page containing data-bound containers")
	dataFlag := flag.String("data", "", "JSON data file")
	outputFlag := flag.String("output", "", "output file (stdout if empty)")
	configFlag := flag.String("config", "", "YAML config describing multiple bindings")
	watchFlag := flag.Bool("watch", false, "keep running and re-render on data changes")
	flag.Parse()

	bindings, err := resolveBindings(*configFlag, *templateFlag, *dataFlag, *outputFlag)
	if err != nil {
		log.Fatalf("livebind: %v", err)
	}

	var closers []func()
	for _, entry := range bindings {
		closer, err := run(entry, *watchFlag)
		if err != nil {
			log.Fatalf("livebind: %s: %v", entry.Template, err)
		}
		closers = append(closers, closer)
	}

	if *watchFlag {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
	}
	for _, closer := range closers {
		closer()
	}
}

func resolveBindings(configPath, template, data, output string) ([]binding, error) {
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		for i, entry := range cfg.Bindings {
			if strings.TrimSpace(entry.Template) == "" || strings.TrimSpace(entry.Data) == "" {
				return nil, fmt.Errorf("config binding %d: template and data are required", i)
			}
		}
		if len(cfg.Bindings) == 0 {
			return nil, fmt.Errorf("config %s has no bindings", configPath)
		}
		return cfg.Bindings, nil
	}

	if template == "" || data == "" {
		return nil, fmt.Errorf("either -config or both -template and -data are required")
	}
	return []binding{{Template: template, Data: data, Output: output}}, nil
}

// run binds every container in one page to the entry's data file and writes
// the rendered page. In watch mode the write repeats after every render.
func run(entry binding, watch bool) (func(), error) {
	raw, err := os.ReadFile(entry.Template)
	if err != nil {
		return nil, err
	}
	doc, err := dom.ParseDocumentString(string(raw))
	if err != nil {
		return nil, err
	}

	write := func() {
		rendered, err := dom.RenderString(doc)
		if err != nil {
			log.Printf("render %s: %v", entry.Template, err)
			return
		}
		if entry.Output == "" {
			fmt.Println(rendered)
			return
		}
		if err := os.WriteFile(entry.Output, []byte(rendered), 0o644); err != nil {
			log.Printf("write %s: %v", entry.Output, err)
		}
	}

	options := []livebind.Option{
		livebind.WithSource(source.NewFileSource(entry.Data)),
	}
	if watch {
		options = append(options, livebind.WithRenderHook(write))
	}

	binders := livebind.BindAll(doc, options...)
	if len(binders) == 0 {
		return nil, fmt.Errorf("no data-bound containers found")
	}

	if !watch {
		write()
	} else if entry.Output != "" {
		log.Printf("watching %s -> %s", entry.Data, entry.Output)
	}

	return func() {
		for _, b := range binders {
			b.Close()
		}
	}, nil
}
