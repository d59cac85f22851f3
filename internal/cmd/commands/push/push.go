package push

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/pagewright/internal/cmd/base"
	"github.com/hashicorp-forge/pagewright/internal/cmd/commands/plan"
	"github.com/hashicorp-forge/pagewright/pkg/blockfile"
	"github.com/hashicorp-forge/pagewright/pkg/notionapi"
	"github.com/hashicorp-forge/pagewright/pkg/objectid"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

// TokenEnv names the environment variable read when the configuration has no
// auth token.
const TokenEnv = "NOTION_TOKEN"

type Command struct {
	*base.Command

	flagConfig   string
	flagParent   string
	flagDatabase string
	flagBlock    string
	flagAfter    string
	flagDryRun   bool

	// transport overrides the API client. Tests set it.
	transport request.Transport
}

func (c *Command) Synopsis() string {
	return "Create a page or append blocks from a block file"
}

func (c *Command) Help() string {
	return `Usage: pagewright push [options] <file.yaml>

  Sends the blocks of a block file to the API, splitting them into as many
  requests as the API limits require.

  Exactly one target is required:

    -parent=<page id>      create a new page under an existing page
    -database=<db id>      create a new page in a database
    -block=<block id>      append the blocks to an existing page or block

  Ids may be given in UUID form or as the link copied from a page or block.

  The auth token is read from the notion block of the configuration file,
  or from ` + TokenEnv + `. A .env file in the working directory is loaded first.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("push", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to the configuration file.",
	)
	f.StringVar(
		&c.flagParent, "parent", "",
		"Page id to create the new page under.",
	)
	f.StringVar(
		&c.flagDatabase, "database", "",
		"Database id to create the new page in.",
	)
	f.StringVar(
		&c.flagBlock, "block", "",
		"Page or block id to append the blocks to.",
	)
	f.StringVar(
		&c.flagAfter, "after", "",
		"Insert after this child of -block instead of at the end.",
	)
	f.BoolVar(
		&c.flagDryRun, "dry-run", false,
		"Print the requests that would be made without sending them.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	logger, ui := c.Log, c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if f.NArg() != 1 {
		ui.Error("expected exactly one block file argument")
		return cli.RunResultHelp
	}
	if err := c.validateTarget(); err != nil {
		ui.Error(err.Error())
		return 1
	}
	if err := c.normalizeIDs(); err != nil {
		ui.Error(err.Error())
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error loading config: %v", err))
		return 1
	}

	doc, err := blockfile.Load(f.Arg(0))
	if err != nil {
		ui.Error(fmt.Sprintf("error loading block file: %v", err))
		return 1
	}

	if c.flagDryRun {
		sim, err := plan.Simulate(context.Background(), doc, cfg.Policy(), c.flagBlock != "", logger)
		if err != nil {
			ui.Error(fmt.Sprintf("error planning requests: %v", err))
			return 1
		}
		sim.Report(ui)
		return 0
	}

	transport := c.transport
	if transport == nil {
		nc, err := cfg.NotionConfig()
		if err != nil {
			ui.Error(fmt.Sprintf("error reading notion config: %v", err))
			return 1
		}
		if nc.AuthToken == "" {
			nc.AuthToken = os.Getenv(TokenEnv)
		}
		client, err := notionapi.NewClient(nc, logger)
		if err != nil {
			ui.Error(fmt.Sprintf("error creating API client: %v", err))
			return 1
		}
		transport = client
	}

	session, err := request.NewSession(transport,
		request.WithPolicy(cfg.Policy()),
		request.WithLogger(logger),
	)
	if err != nil {
		ui.Error(fmt.Sprintf("error creating session: %v", err))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.flagBlock != "" {
		return c.appendBlocks(ctx, session, doc)
	}
	return c.createPage(ctx, session, doc)
}

func (c *Command) validateTarget() error {
	targets := 0
	for _, v := range []string{c.flagParent, c.flagDatabase, c.flagBlock} {
		if v != "" {
			targets++
		}
	}
	if targets != 1 {
		return errors.New("exactly one of -parent, -database or -block is required")
	}
	if c.flagAfter != "" && c.flagBlock == "" {
		return errors.New("-after requires -block")
	}
	return nil
}

// normalizeIDs rewrites every id flag in canonical form.
func (c *Command) normalizeIDs() error {
	for _, v := range []*string{&c.flagParent, &c.flagDatabase, &c.flagBlock, &c.flagAfter} {
		if *v == "" {
			continue
		}
		id, err := objectid.Parse(*v)
		if err != nil {
			return err
		}
		*v = id.String()
	}
	return nil
}

func (c *Command) createPage(ctx context.Context, session *request.Session, doc *blockfile.Document) int {
	parent := request.PageParent(c.flagParent)
	if c.flagDatabase != "" {
		parent = request.DatabaseParent(c.flagDatabase)
	}

	result, err := session.CreatePage(ctx, doc.PageRequest(parent))
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating page: %v", err))
		return 1
	}

	c.Log.Info("page created", "page_id", result.PageID, "api_calls", result.APICallCount)
	c.UI.Output(fmt.Sprintf("Created page %s in %d API calls", result.PageID, result.APICallCount))
	if result.Append != nil && result.Append.ProtocolErrors != nil {
		c.UI.Warn(fmt.Sprintf("Some nested content was skipped: %v", result.Append.ProtocolErrors))
		return 2
	}
	return 0
}

func (c *Command) appendBlocks(ctx context.Context, session *request.Session, doc *blockfile.Document) int {
	var opts []request.AppendOption
	if c.flagAfter != "" {
		opts = append(opts, request.After(c.flagAfter))
	}

	result, err := session.Append(ctx, c.flagBlock, doc.Blocks, opts...)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error appending blocks: %v", err))
		return 1
	}

	c.Log.Info("blocks appended", "parent_id", c.flagBlock, "api_calls", result.APICallCount)
	c.UI.Output(fmt.Sprintf("Appended %d blocks to %s in %d API calls", len(doc.Blocks), c.flagBlock, result.APICallCount))
	if result.ProtocolErrors != nil {
		c.UI.Warn(fmt.Sprintf("Some nested content was skipped: %v", result.ProtocolErrors))
		return 2
	}
	return 0
}
