package version

import (
	"github.com/hashicorp-forge/pagewright/internal/cmd/base"
	"github.com/hashicorp-forge/pagewright/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the pagewright version"
}

func (c *Command) Help() string {
	return `Usage: pagewright version

  Prints the version of this binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("pagewright " + version.String())
	return 0
}
