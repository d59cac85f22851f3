package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/pagewright/internal/cmd/base"
	"github.com/hashicorp-forge/pagewright/internal/cmd/commands/plan"
	"github.com/hashicorp-forge/pagewright/internal/cmd/commands/push"
	"github.com/hashicorp-forge/pagewright/internal/cmd/commands/version"
)

// Commands is the mapping of all available pagewright commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"plan": func() (cli.Command, error) {
			return &plan.Command{Command: b}, nil
		},
		"push": func() (cli.Command, error) {
			return &push.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
