package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/pagewright/internal/cmd/base"
	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/blockfile"
	"github.com/hashicorp-forge/pagewright/pkg/chunk"
	"github.com/hashicorp-forge/pagewright/pkg/limits"
	"github.com/hashicorp-forge/pagewright/pkg/request"
	"github.com/hashicorp-forge/pagewright/pkg/request/mock"
)

type Command struct {
	*base.Command

	flagConfig string
	flagAppend bool
}

func (c *Command) Synopsis() string {
	return "Show the requests a block file would be sent as"
}

func (c *Command) Help() string {
	return `Usage: pagewright plan [options] <file.yaml>

  Runs the block file through the request protocol against an in-memory
  copy of the API and prints every request it would make. Nothing is sent
  over the network.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("plan", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to the configuration file. Only the limits block is used.",
	)
	f.BoolVar(
		&c.flagAppend, "append", false,
		"Plan appending to an existing block instead of creating a page.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one block file argument")
		return cli.RunResultHelp
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading config: %v", err))
		return 1
	}

	doc, err := blockfile.Load(f.Arg(0))
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading block file: %v", err))
		return 1
	}

	sim, err := Simulate(context.Background(), doc, cfg.Policy(), c.flagAppend, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error planning requests: %v", err))
		return 1
	}
	sim.Report(c.UI)
	if !sim.Verified {
		return 1
	}
	return 0
}

// Simulation is the outcome of sending a document to the in-memory fake.
type Simulation struct {
	// Calls lists every request made, in order.
	Calls []mock.Call

	// Stats describes the top-level partition of the document.
	Stats chunk.Stats

	// Nodes is the number of blocks in the document.
	Nodes int

	// Containers is the number of blocks that carry children, each a
	// possible target of a follow-up append.
	Containers int

	APICallCount   int
	ProtocolErrors error

	// Verified reports whether the fake ended up holding exactly the
	// document's tree.
	Verified bool
}

// Simulate sends doc to a strict fake enforcing policy. With appendOnly the
// blocks are appended to an existing page, otherwise a page is created.
func Simulate(ctx context.Context, doc *blockfile.Document, policy limits.Policy, appendOnly bool, logger hclog.Logger) (*Simulation, error) {
	fake := mock.NewFakeTransport()
	fake.Policy = policy

	session, err := request.NewSession(fake,
		request.WithPolicy(policy),
		request.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		Stats:      chunk.Summarize(chunk.Partition(doc.Blocks, session.Policy())),
		Nodes:      block.NodeCount(doc.Blocks),
		Containers: block.ContainerCount(doc.Blocks),
	}

	var pageID string
	if appendOnly {
		pageID = fake.AddPage()
		result, err := session.Append(ctx, pageID, doc.Blocks)
		if err != nil {
			return nil, err
		}
		sim.APICallCount = result.APICallCount
		sim.ProtocolErrors = result.ProtocolErrors
	} else {
		result, err := session.CreatePage(ctx, doc.PageRequest(request.Parent{Type: request.ParentWorkspace}))
		if err != nil {
			return nil, err
		}
		pageID = result.PageID
		sim.APICallCount = result.APICallCount
		if result.Append != nil {
			sim.ProtocolErrors = result.Append.ProtocolErrors
		}
	}
	sim.Calls = fake.Calls()

	tree, err := fake.Tree(pageID)
	if err != nil {
		return nil, err
	}
	sim.Verified, err = sameTree(tree, doc.Blocks)
	if err != nil {
		return nil, err
	}
	return sim, nil
}

// Report writes the simulation to ui.
func (s *Simulation) Report(ui cli.Ui) {
	ui.Output(fmt.Sprintf("Blocks: %d (%d top-level in %d slices, largest slice %d bytes)",
		s.Nodes, s.Stats.Blocks, s.Stats.Slices, s.Stats.Largest))
	ui.Output(fmt.Sprintf("Containers: %d", s.Containers))
	ui.Output("")

	for i, call := range s.Calls {
		switch call.Method {
		case mock.MethodCreate:
			ui.Output(fmt.Sprintf("%3d. create page with %d blocks (%d nested)",
				i+1, len(call.Blocks), block.NodeCount(call.Blocks)))
		case mock.MethodAppend:
			line := fmt.Sprintf("%3d. append %d blocks (%d nested) to %s",
				i+1, len(call.Blocks), block.NodeCount(call.Blocks), call.ParentID)
			if call.After != "" {
				line += " after " + call.After
			}
			ui.Output(line)
		default:
			ui.Output(fmt.Sprintf("%3d. %s %s", i+1, call.Method, call.ParentID))
		}
	}

	ui.Output("")
	ui.Output(fmt.Sprintf("API calls: %d", s.APICallCount))
	if s.ProtocolErrors != nil {
		ui.Warn(fmt.Sprintf("Protocol errors: %v", s.ProtocolErrors))
	}
	if s.Verified {
		ui.Info("The resulting tree matches the block file.")
	} else {
		ui.Error("The resulting tree does not match the block file.")
	}
}

func sameTree(a, b []*block.Block) (bool, error) {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b), nil
	}
	x, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(x, y), nil
}
