package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/secret"
)

var errNoTitles = errors.New("no titles given; use --title or --file")

func clientFor(cmd *cli.Command) *apiClient {
	return newAPIClient(cmd.String("server"), cmd.String("token"))
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	titles := cmd.StringSlice("title")
	if path := cmd.String("file"); path != "" {
		fromFile, err := readTitles(path)
		if err != nil {
			return err
		}
		titles = append(titles, fromFile...)
	}
	if len(titles) == 0 {
		return errNoTitles
	}

	res, err := clientFor(cmd).Generate(ctx, buildRequest(cmd, titles))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, res.Message)
	for _, id := range res.IDs {
		fmt.Fprintf(cmd.Root().Writer, "  #%d\n", id)
	}
	return nil
}

// buildRequest sends only the options given on the command line so the
// server's defaults fill the rest.
func buildRequest(cmd *cli.Command, titles []string) domain.GenerateRequest {
	req := domain.GenerateRequest{Titles: titles}

	intOpt := func(name string) *int {
		if !cmd.IsSet(name) {
			return nil
		}
		v := int(cmd.Int(name))
		return &v
	}
	strOpt := func(name string) *string {
		if !cmd.IsSet(name) {
			return nil
		}
		v := cmd.String(name)
		return &v
	}

	req.WordCount = intOpt("word-count")
	req.ArticleType = strOpt("type")
	req.Tone = strOpt("tone")
	req.POV = strOpt("pov")
	req.FAQCount = intOpt("faq-count")
	req.TakeawayCount = intOpt("takeaway-count")
	req.PostStatus = strOpt("status")
	req.Tags = strOpt("tags")
	req.ImageProvider = strOpt("image-provider")
	req.ImageStyle = strOpt("image-style")
	req.MaxLinks = intOpt("max-links")
	if cmd.IsSet("category") {
		v := int64(cmd.Int("category"))
		req.Category = &v
	}
	if cmd.Bool("no-linking") {
		off := 0
		req.InternalLinking = &off
	}
	return req
}

// readTitles returns the non-blank lines of path.
func readTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open titles file: %w", err)
	}
	defer f.Close()

	var titles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			titles = append(titles, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read titles file: %w", err)
	}
	return titles, nil
}

func queueAction(ctx context.Context, cmd *cli.Command) error {
	rows, err := clientFor(cmd).Queue(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.Root().Writer)
	table.Header("ID", "Status", "Retries", "Title", "Detail")
	for _, r := range rows {
		detail := ""
		switch {
		case r.EditURL != nil:
			detail = *r.EditURL
		case r.ErrorMessage != nil:
			detail = *r.ErrorMessage
		}
		if err := table.Append(strconv.FormatInt(r.ID, 10), string(r.Status), strconv.Itoa(r.RetryCount), r.Title, detail); err != nil {
			return err
		}
	}
	return table.Render()
}

func retryAction(ctx context.Context, cmd *cli.Command) error {
	id, err := itemID(cmd)
	if err != nil {
		return err
	}
	msg, err := clientFor(cmd).Retry(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, msg)
	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	id, err := itemID(cmd)
	if err != nil {
		return err
	}
	msg, err := clientFor(cmd).Delete(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, msg)
	return nil
}

func itemID(cmd *cli.Command) (int64, error) {
	arg := cmd.Args().First()
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}

func encryptKeyAction(_ context.Context, cmd *cli.Command) error {
	plaintext := cmd.Args().First()
	if plaintext == "" {
		return errors.New("missing key to encrypt")
	}
	enc, err := secret.Encrypt(plaintext, cmd.String("salt"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, enc)
	return nil
}
