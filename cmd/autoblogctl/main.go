// Command autoblogctl queues titles and manages the generation queue of an
// autoblog server from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "autoblogctl",
		Usage:  "queue AI-generated articles and manage the generation queue",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "autoblog server base URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("AUTOBLOG_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "admin bearer token",
				Sources: cli.EnvVars("AUTOBLOG_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "queue one article per title",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "title", Aliases: []string{"t"}, Usage: "article title (repeatable)"},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "file with one title per line"},
					&cli.IntFlag{Name: "word-count", Usage: "target length in words"},
					&cli.StringFlag{Name: "type", Usage: "article type (blog_post, how_to, listicle, ...)"},
					&cli.StringFlag{Name: "tone", Usage: "writing tone"},
					&cli.StringFlag{Name: "pov", Usage: "point of view (first, second, third)"},
					&cli.IntFlag{Name: "faq-count", Usage: "number of FAQ entries"},
					&cli.IntFlag{Name: "takeaway-count", Usage: "number of key takeaways"},
					&cli.StringFlag{Name: "status", Usage: "post status (draft, publish, pending)"},
					&cli.IntFlag{Name: "category", Usage: "category id"},
					&cli.StringFlag{Name: "tags", Usage: "comma-separated tags"},
					&cli.StringFlag{Name: "image-provider", Usage: "none, dall-e or stability"},
					&cli.StringFlag{Name: "image-style", Usage: "featured image style"},
					&cli.BoolFlag{Name: "no-linking", Usage: "disable internal linking"},
					&cli.IntFlag{Name: "max-links", Usage: "maximum internal links per article"},
				},
				Action: generateAction,
			},
			{
				Name:   "queue",
				Usage:  "show the most recent queue items",
				Action: queueAction,
			},
			{
				Name:      "retry",
				Usage:     "re-queue a failed item",
				ArgsUsage: "<id>",
				Action:    retryAction,
			},
			{
				Name:      "delete",
				Usage:     "remove a queue item",
				ArgsUsage: "<id>",
				Action:    deleteAction,
			},
			{
				Name:      "encrypt-key",
				Usage:     "encrypt a Stability AI key for STABILITY_API_KEY_ENCRYPTED",
				ArgsUsage: "<plaintext>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "salt",
						Usage:   "encryption salt; must match the server's ENCRYPTION_SALT",
						Sources: cli.EnvVars("ENCRYPTION_SALT"),
					},
				},
				Action: encryptKeyAction,
			},
		},
	}
}
