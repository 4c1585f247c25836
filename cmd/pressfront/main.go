package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eringen/pressfront"
	"github.com/eringen/pressfront/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pressfront",
		Usage:   "Render a blog from a headless WordPress REST API",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "optional config file (yaml, toml, json); environment variables take precedence",
				EnvVars: []string{"PRESSFRONT_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serve,
			},
			{
				Name:   "slugs",
				Usage:  "Print the slug of every post the API lists",
				Action: listSlugs,
			},
			{
				Name:  "version",
				Usage: "Print the pressfront version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "pressfront %s\n", version)
					return nil
				},
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := pressfront.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	app := pressfront.New(cfg, views.New(cfg))
	defer app.Close()
	return app.Start()
}

func listSlugs(c *cli.Context) error {
	cfg, err := pressfront.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	client := pressfront.NewClient(cfg.APIBase, pressfront.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}))
	posts, err := client.Posts(c.Context)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Fprintln(c.App.Writer, p.Slug)
	}
	return nil
}
